package subscription

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/auth"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/tests"
)

func TestSubscription(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Subscription Suite")
}

var _ = Describe("Subscription", Ordered, func() {
	var server *tests.MockServer
	var manager *Manager

	logger := logger.MockLogger(GinkgoWriter)
	ctx := context.Background()
	timeout := 2 * time.Second

	resource := Resource{
		Name: "joint-target",
		CandidatePaths: []string{
			"/rw/motionsystem/mechunits/ROB_1/jointtarget",
			"/rw/motionsystem/mechunits/ROB_1/jointtarget;state",
			"/rw/rapid/tasks/ROB_1/motion",
		},
		Priority: 1,
	}

	Context("Creation", func() {
		When("only the third candidate path is accepted", func() {
			var requested []string
			var id string

			BeforeEach(func() {
				requested = nil
				server = tests.NewMockServer(tests.MockHandler{
					Endpoint: "/subscription",
					HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
						r.ParseForm()
						path := r.PostFormValue("1")
						requested = append(requested, path)

						if path != resource.CandidatePaths[2] {
							w.WriteHeader(http.StatusNotFound)
							return
						}
						fmt.Fprint(w, `<subscription><id>33</id></subscription>`)
					},
				})

				manager = NewManager(logger, auth.MockSession(server.Addr), timeout)
				id = manager.Create(ctx, resource)
			})

			AfterEach(func() {
				server.Close()
			})

			It("probes the candidates in order and makes exactly three requests", func() {
				Expect(requested).To(Equal(resource.CandidatePaths))
			})

			It("returns the id the accepted candidate produced", func() {
				Expect(id).To(Equal("33"))
			})
		})

		When("every candidate path is rejected", func() {
			var id string

			BeforeEach(func() {
				server = tests.NewMockServer(tests.MockHandler{
					Endpoint: "/subscription",
					HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(http.StatusNotFound)
					},
				})

				manager = NewManager(logger, auth.MockSession(server.Addr), timeout)
				id = manager.Create(ctx, resource)
			})

			AfterEach(func() {
				server.Close()
			})

			It("returns an empty id instead of an error", func() {
				Expect(id).To(BeEmpty())
			})
		})

		When("the accepted response body varies in format", func() {
			responseFor := func(body string) string {
				server = tests.NewMockServer(tests.MockHandler{
					Endpoint: "/subscription",
					HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
						fmt.Fprint(w, body)
					},
				})
				defer func() { server.Close() }()

				manager = NewManager(logger, auth.MockSession(server.Addr), timeout)
				return manager.Create(ctx, resource)
			}

			It("parses an xml body", func() {
				Expect(responseFor(`<subscription><id>7</id></subscription>`)).To(Equal("7"))
			})

			It("parses a json body", func() {
				Expect(responseFor(`{"subscription":{"id":"8"}}`)).To(Equal("8"))
			})

			It("parses a plain-text body", func() {
				Expect(responseFor(`9`)).To(Equal("9"))
			})

			It("rejects a body with no id in it", func() {
				Expect(responseFor(`<html><body></body></html>`)).To(BeEmpty())
			})
		})
	})

	Context("Deletion", func() {
		When("the controller accepts the delete", func() {
			var deleted []string

			BeforeEach(func() {
				deleted = nil
				server = tests.NewMockServer(tests.MockHandler{
					Endpoint: "/subscription/",
					HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
						if r.Method == http.MethodDelete {
							deleted = append(deleted, r.URL.Path)
						}
						w.WriteHeader(http.StatusOK)
					},
				})

				manager = NewManager(logger, auth.MockSession(server.Addr), timeout)
				manager.Delete(ctx, "33")
			})

			AfterEach(func() {
				server.Close()
			})

			It("issues a DELETE against the subscription id", func() {
				Expect(deleted).To(Equal([]string{"/subscription/33"}))
			})
		})

		When("the delete fails", func() {
			BeforeEach(func() {
				server = tests.NewMockServer(tests.MockHandler{
					Endpoint: "/subscription/",
					HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(http.StatusInternalServerError)
					},
				})

				manager = NewManager(logger, auth.MockSession(server.Addr), timeout)
			})

			AfterEach(func() {
				server.Close()
			})

			It("swallows the failure", func() {
				Expect(func() { manager.Delete(ctx, "33") }).ToNot(Panic())
			})
		})
	})
})
