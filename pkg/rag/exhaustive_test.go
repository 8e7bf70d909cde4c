package rag_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/civitaslabs/ordina/pkg/rag"
)

var _ = Describe("IsExhaustive", func() {
	It("detects single marker words", func() {
		Expect(rag.IsExhaustive("list ordinances about waste")).To(BeTrue())
		Expect(rag.IsExhaustive("every tricycle route")).To(BeTrue())
		Expect(rag.IsExhaustive("enumerate the curfew rules")).To(BeTrue())
	})

	It("detects marker words with trailing punctuation", func() {
		Expect(rag.IsExhaustive("do the rules apply to all?")).To(BeTrue())
	})

	It("detects marker phrases", func() {
		Expect(rag.IsExhaustive("give me all waste ordinances")).To(BeTrue())
		Expect(rag.IsExhaustive("show me all park rules")).To(BeTrue())
		Expect(rag.IsExhaustive("how many ordinances cover noise")).To(BeTrue())
		Expect(rag.IsExhaustive("what are all the franchise fees")).To(BeTrue())
		Expect(rag.IsExhaustive("I need the complete list of permits")).To(BeTrue())
	})

	It("matches case-insensitively", func() {
		Expect(rag.IsExhaustive("LIST ALL ordinances")).To(BeTrue())
	})

	It("ignores marker words embedded inside other words", func() {
		Expect(rag.IsExhaustive("basketball court rules near city hall")).To(BeFalse())
		Expect(rag.IsExhaustive("is littering allowed")).To(BeFalse())
	})

	It("leaves focused questions alone", func() {
		Expect(rag.IsExhaustive("when is waste collected in zone 3")).To(BeFalse())
		Expect(rag.IsExhaustive("what is the curfew for minors")).To(BeFalse())
	})
})
