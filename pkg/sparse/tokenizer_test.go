package sparse_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/civitaslabs/ordina/pkg/sparse"
)

var _ = Describe("Tokenize", func() {
	It("lower-cases and splits on non-alphanumeric boundaries", func() {
		tokens := sparse.Tokenize("Waste-Management: collection/segregation, 2007!")
		Expect(tokens).To(Equal([]string{"waste", "management", "collection", "segregation", "2007"}))
	})

	It("drops stop-words", func() {
		tokens := sparse.Tokenize("the collection of waste in the city")
		Expect(tokens).To(Equal([]string{"collection", "waste", "city"}))
	})

	It("drops single-character fragments", func() {
		tokens := sparse.Tokenize("section 5 a paragraph b")
		Expect(tokens).To(Equal([]string{"section", "paragraph"}))
	})

	It("returns an empty slice for text with no usable terms", func() {
		Expect(sparse.Tokenize("a of the !!")).To(BeEmpty())
		Expect(sparse.Tokenize("")).To(BeEmpty())
	})

	It("keeps digits and mixed alphanumerics", func() {
		tokens := sparse.Tokenize("Ordinance No. 2007-035")
		Expect(tokens).To(Equal([]string{"ordinance", "no", "2007", "035"}))
	})
})
