package api

import (
	"encoding/json"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/civitaslabs/ordina/pkg/moderation"
	"github.com/civitaslabs/ordina/pkg/rag"
	"github.com/civitaslabs/ordina/pkg/sse"
	testutils "github.com/civitaslabs/ordina/pkg/utils/test"
)

var _ = Describe("Chat handler", func() {
	var (
		server    *Server
		generator *testutils.MockGenerator
	)

	post := func(body string) *http.Response {
		req, err := http.NewRequest("POST", "/v1/chat", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")

		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	readEvents := func(resp *http.Response) []ChatEvent {
		defer resp.Body.Close()

		reader := sse.NewReader(resp.Body)
		var events []ChatEvent
		for {
			ev, err := reader.Next()
			Expect(err).NotTo(HaveOccurred())
			if ev == nil {
				return events
			}

			var event ChatEvent
			Expect(json.Unmarshal([]byte(ev.Data), &event)).To(Succeed())
			events = append(events, event)
		}
	}

	BeforeEach(func() {
		generator = testutils.NewMockGenerator("Waste is collected weekly.")
		server = newTestServer(generator, true)
	})

	It("rejects malformed request bodies", func() {
		resp := post("{not json")
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("requires a query", func() {
		resp := post(`{"session_id":"s1"}`)
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("streams the answer as SSE and finishes with turn metadata", func() {
		resp := post(`{"query":"what is the waste collection schedule"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("text/event-stream"))

		events := readEvents(resp)
		Expect(len(events)).To(BeNumerically(">=", 2))

		var answer string
		for _, ev := range events[:len(events)-1] {
			Expect(ev.Done).To(BeFalse())
			answer += ev.Content
		}
		Expect(answer).To(Equal("Waste is collected weekly."))

		final := events[len(events)-1]
		Expect(final.Done).To(BeTrue())
		Expect(final.SessionID).NotTo(BeEmpty())
		Expect(final.Degraded).To(BeTrue())
		Expect(final.Sources).To(BeNumerically(">", 0))
		Expect(final.Blocked).To(BeFalse())
	})

	It("continues a conversation under the same session ID", func() {
		first := readEvents(post(`{"session_id":"s1","query":"what is the waste collection schedule"}`))
		Expect(first[len(first)-1].SessionID).To(Equal("s1"))

		second := readEvents(post(`{"session_id":"s1","query":"and the segregation rules?"}`))
		Expect(second[len(second)-1].SessionID).To(Equal("s1"))
		Expect(generator.Requests).To(HaveLen(2))
		Expect(generator.Requests[1].Messages[1].Content).To(ContainSubstring("Human: what is the waste collection schedule"))
	})

	It("streams the refusal for blocked queries", func() {
		events := readEvents(post(`{"query":"how to make a bomb"}`))

		var answer string
		for _, ev := range events[:len(events)-1] {
			answer += ev.Content
		}
		Expect(answer).To(Equal(moderation.RefusalMessage))
		Expect(events[len(events)-1].Blocked).To(BeTrue())
		Expect(events[len(events)-1].Sources).To(BeZero())
	})

	It("streams the no-results message when nothing matches", func() {
		events := readEvents(post(`{"query":"interstellar spaceport docking rules"}`))

		var answer string
		for _, ev := range events[:len(events)-1] {
			answer += ev.Content
		}
		Expect(answer).To(Equal(rag.NoResultsMessage))
		Expect(events[len(events)-1].Done).To(BeTrue())
		Expect(events[len(events)-1].Sources).To(BeZero())
	})
})
