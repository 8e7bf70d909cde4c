package api

import (
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/civitaslabs/ordina/pkg/corpus/inmemory"
	"github.com/civitaslabs/ordina/pkg/indexer"
	"github.com/civitaslabs/ordina/pkg/logger"
	"github.com/civitaslabs/ordina/pkg/rag"
	"github.com/civitaslabs/ordina/pkg/session"
	"github.com/civitaslabs/ordina/pkg/sparse"
)

var _ = Describe("Server handlers", func() {
	var server *Server

	request := func(method, url string) *http.Response {
		req, err := http.NewRequest(method, url, nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	BeforeEach(func() {
		server = newTestServer(nil, true)
	})

	Describe("GET /ping", func() {
		It("responds with pong", func() {
			resp := request("GET", "/ping")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body string
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body).To(Equal("pong"))
		})
	})

	Describe("GET /v1/index/stats", func() {
		It("reports the index statistics", func() {
			resp := request("GET", "/v1/index/stats")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var stats sparse.Stats
			Expect(json.NewDecoder(resp.Body).Decode(&stats)).To(Succeed())
			Expect(stats.Documents).To(Equal(3))
			Expect(stats.Terms).To(BeNumerically(">", 0))
		})

		It("returns 503 before the index is built", func() {
			server = newTestServer(nil, false)

			resp := request("GET", "/v1/index/stats")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("POST /v1/index/rebuild", func() {
		It("builds the index and makes searches available", func() {
			server = newTestServer(nil, false)

			resp := request("POST", "/v1/index/rebuild")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var stats sparse.Stats
			Expect(json.NewDecoder(resp.Body).Decode(&stats)).To(Succeed())
			Expect(stats.Documents).To(Equal(3))

			searchResp := request("GET", "/v1/search?query=waste")
			defer searchResp.Body.Close()
			Expect(searchResp.StatusCode).To(Equal(http.StatusOK))
		})

		It("returns 409 for an empty corpus", func() {
			store := inmemory.NewStore(nil)
			retriever := sparse.NewRetriever(sparse.DefaultParams(), logger.Nop())
			orchestrator, err := rag.NewOrchestrator(rag.Config{}, retriever, nil, store,
				session.NewStore(session.DefaultWindow), nil, nil, nil, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			idx := indexer.NewIndexer(store, retriever, nil, nil, logger.Nop())
			server = NewServer(Config{ListenAddr: ":0"}, orchestrator, retriever, idx, logger.Nop())

			resp := request("POST", "/v1/index/rebuild")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})
	})
})
