package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/tests"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Suite")
}

// endpointFor converts a mock server address into the Endpoint shape hosts use
func endpointFor(addr string) Endpoint {
	parsed, _ := url.Parse(addr)
	host, portStr, _ := net.SplitHostPort(parsed.Host)
	port, _ := strconv.Atoi(portStr)
	return Endpoint{Host: host, Port: port, Task: "ROB_1"}
}

var _ = Describe("Auth", Ordered, func() {
	var controller *tests.MockServer
	var session *Session
	var err error

	logger := logger.MockLogger(GinkgoWriter)
	ctx := context.Background()

	credentials := Credentials{Username: "operator", Password: "robotics"}

	Context("Handshake", func() {
		When("the controller accepts the credentials", func() {

			BeforeEach(func() {
				controller = tests.NewMockServer(tests.MockHandler{
					Endpoint: "/rw/system",
					HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
						http.SetCookie(w, &http.Cookie{Name: "ABBCX", Value: "session-token", Path: "/"})
						// No Path attribute: defaults to the request's directory
						http.SetCookie(w, &http.Cookie{Name: "-http-session-", Value: "scoped"})
						w.WriteHeader(http.StatusOK)
					},
				})

				session, err = Authenticate(ctx, logger, endpointFor(controller.Addr), credentials, 2*time.Second)
			})

			AfterEach(func() {
				controller.Close()
			})

			It("produces a session", func() {
				Expect(err).ToNot(HaveOccurred(), "authentication should have succeeded: %s", err)
				Expect(session).ToNot(BeNil())
				Expect(session.EstablishedAt()).ToNot(BeZero())
			})

			It("retains the controller's cookies for later requests", func() {
				base, parseErr := url.Parse(session.BaseUrl())
				Expect(parseErr).ToNot(HaveOccurred())

				cookies := session.Cookies(base)
				Expect(cookies).ToNot(BeEmpty(), "session should carry the cookie the controller set")
			})

			It("keeps path-scoped cookies visible under their directory", func() {
				scoped, parseErr := url.Parse(session.BaseUrl() + "/rw/system")
				Expect(parseErr).ToNot(HaveOccurred())

				names := []string{}
				for _, cookie := range session.Cookies(scoped) {
					names = append(names, cookie.Name)
				}
				Expect(names).To(ContainElements("ABBCX", "-http-session-"),
					"a cookie without a Path attribute scopes to the handshake resource's directory")
			})
		})

		When("the controller rejects the credentials", func() {

			BeforeEach(func() {
				controller = tests.NewMockServer(tests.MockHandler{
					Endpoint: "/rw/system",
					HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
						w.Header().Set("WWW-Authenticate", `Digest realm="controller", nonce="deadbeef", qop="auth", algorithm=MD5`)
						w.WriteHeader(http.StatusUnauthorized)
					},
				})

				session, err = Authenticate(ctx, logger, endpointFor(controller.Addr), credentials, 2*time.Second)
			})

			AfterEach(func() {
				controller.Close()
			})

			It("fails with an authentication error", func() {
				Expect(err).To(HaveOccurred())

				var authErr *AuthenticationError
				Expect(errors.As(err, &authErr)).To(BeTrue(), "expected an AuthenticationError but got %T", err)
			})
		})

		When("the controller is unreachable", func() {

			BeforeEach(func() {
				unreachable := Endpoint{Host: "localhost", Port: 1, Task: "ROB_1"}
				session, err = Authenticate(ctx, logger, unreachable, credentials, time.Second)
			})

			It("fails without retrying", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})
})
