package searchcmder_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	searchcmder "github.com/civitaslabs/ordina/cmd/ordina/search"
	"github.com/civitaslabs/ordina/pkg/llm"
	"github.com/civitaslabs/ordina/pkg/rag"
)

func TestSearchCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SearchCmd Suite")
}

var _ = Describe("NewSearchCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := searchcmder.NewSearchCmd()
		Expect(cmd.Use).To(HavePrefix("search"))
	})
})

var _ = Describe("SearchAPI", func() {
	It("queries the API and decodes the output", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/search"))
			Expect(r.URL.Query().Get("query")).To(Equal("waste collection"))
			Expect(r.URL.Query().Get("top_k")).To(Equal("3"))

			json.NewEncoder(w).Encode(rag.SearchOutput{
				Query: "waste collection",
				Results: []rag.Passage{
					{DocID: "ord-1", Text: "Waste is collected weekly.", Score: 0.9},
				},
				Count: 1,
			})
		}))
		defer server.Close()

		out, err := searchcmder.SearchAPI(server.URL, "waste collection", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Count).To(Equal(1))
		Expect(out.Results[0].DocID).To(Equal("ord-1"))
	})

	It("surfaces API error bodies", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(llm.ErrorResponse{Error: "sparse index not built"})
		}))
		defer server.Close()

		_, err := searchcmder.SearchAPI(server.URL, "waste", 5)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("sparse index not built"))
	})

	It("reports the status code when the error body is not JSON", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream broke"))
		}))
		defer server.Close()

		_, err := searchcmder.SearchAPI(server.URL, "waste", 5)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("502"))
	})

	It("fails cleanly when the server is unreachable", func() {
		_, err := searchcmder.SearchAPI("http://127.0.0.1:1", "waste", 5)
		Expect(err).To(HaveOccurred())
	})
})
