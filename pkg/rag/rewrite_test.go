package rag_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/civitaslabs/ordina/pkg/rag"
	"github.com/civitaslabs/ordina/pkg/session"
)

var _ = Describe("Rewrite", func() {
	history := func(queries ...string) []session.Turn {
		turns := make([]session.Turn, len(queries))
		for i, q := range queries {
			turns[i] = session.Turn{Query: q, Answer: "answer"}
		}
		return turns
	}

	It("passes queries through unchanged when there is no history", func() {
		Expect(rag.Rewrite("what about the fines?", nil)).To(Equal("what about the fines?"))
	})

	It("passes self-contained queries through unchanged", func() {
		turns := history("what is the waste collection schedule")
		query := "when do tricycle franchises expire each year"

		Expect(rag.Rewrite(query, turns)).To(Equal(query))
	})

	It("carries prior terms into very short follow-ups", func() {
		turns := history("what is the waste collection schedule")

		rewritten := rag.Rewrite("and the fines?", turns)
		Expect(rewritten).To(HavePrefix("and the fines?"))
		Expect(rewritten).To(ContainSubstring("waste"))
		Expect(rewritten).To(ContainSubstring("collection"))
		Expect(rewritten).To(ContainSubstring("schedule"))
	})

	It("treats a leading back-reference as a follow-up", func() {
		turns := history("what is the curfew ordinance for minors")

		rewritten := rag.Rewrite("that ordinance, does it apply on weekends too?", turns)
		Expect(rewritten).To(ContainSubstring("curfew"))
		Expect(rewritten).To(ContainSubstring("minors"))
	})

	It("treats known follow-up phrases as follow-ups", func() {
		turns := history("what is the curfew ordinance for minors")

		rewritten := rag.Rewrite("what about penalties for violations there?", turns)
		Expect(rewritten).To(ContainSubstring("curfew"))
	})

	It("does not duplicate terms already present in the follow-up", func() {
		turns := history("waste collection schedule")

		rewritten := rag.Rewrite("waste fines?", turns)
		Expect(rewritten).To(Equal("waste fines? collection schedule"))
	})

	It("uses only the most recent turn for carried terms", func() {
		turns := history(
			"what is the waste collection schedule",
			"what is the curfew for minors",
		)

		rewritten := rag.Rewrite("and the fines?", turns)
		Expect(rewritten).To(ContainSubstring("curfew"))
		Expect(rewritten).NotTo(ContainSubstring("waste"))
	})

	It("bounds the number of carried terms", func() {
		turns := history("waste collection schedule segregation recycling composting hazardous landfill transfer")

		rewritten := rag.Rewrite("and fines?", turns)
		carried := len(strings.Fields(rewritten)) - len(strings.Fields("and fines?"))
		Expect(carried).To(BeNumerically("<=", 6))
	})

	It("leaves the query alone when the prior turn adds nothing new", func() {
		turns := history("bomb")

		Expect(rag.Rewrite("bomb?", turns)).To(Equal("bomb?"))
	})
})
