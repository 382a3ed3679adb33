package telemetry

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestTelemetry(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Telemetry Suite")
}

var _ = Describe("Parse", func() {
	var sample Sample
	var err error

	jointEvent := func(subscriptionId string) string {
		return `<html><body><ul><li class="rap-jointtarget-ev">` +
			`<a href="/subscription/` + subscriptionId + `" rel="group"></a>` +
			`<span class="rax_1">10.5</span><span class="rax_2">-20.25</span><span class="rax_3">30</span>` +
			`<span class="rax_4">0.125</span><span class="rax_5">45.5</span><span class="rax_6">-90</span>` +
			`</li></ul></body></html>`
	}

	Context("JSON payloads", func() {
		When("the payload is a nested polling response", func() {

			BeforeEach(func() {
				raw := `{"_embedded":{"_state":[{"_type":"rap-jointtarget","rax_1":"1.5","rax_2":"2","rax_3":"-3.25","rax_4":"4","rax_5":"5","rax_6":"6"}]}}`
				sample, err = Parse([]byte(raw), "")
			})

			It("extracts all six joint angles", func() {
				Expect(err).ToNot(HaveOccurred())
				Expect(sample.JointAngles).To(Equal([6]float64{1.5, 2, -3.25, 4, 5, 6}))
			})

			It("stamps a capture time", func() {
				Expect(sample.CapturedAt).ToNot(BeZero())
			})
		})

		When("a joint field is missing", func() {

			BeforeEach(func() {
				raw := `{"_embedded":{"_state":[{"rax_1":"1","rax_2":"2","rax_4":"4","rax_5":"5","rax_6":"6"}]}}`
				sample, err = Parse([]byte(raw), "")
			})

			It("defaults the missing joint to zero without failing the sample", func() {
				Expect(err).ToNot(HaveOccurred())
				Expect(sample.JointAngles[2]).To(BeZero())
				Expect(sample.JointAngles[0]).To(Equal(1.0))
			})
		})

		When("joint values are numbers instead of strings", func() {

			BeforeEach(func() {
				raw := `{"state":{"rax_1":1.5,"rax_2":2.5,"rax_3":3.5,"rax_4":4.5,"rax_5":5.5,"rax_6":6.5}}`
				sample, err = Parse([]byte(raw), "")
			})

			It("parses them the same way", func() {
				Expect(err).ToNot(HaveOccurred())
				Expect(sample.JointAngles[5]).To(Equal(6.5))
			})
		})
	})

	Context("XML payloads", func() {
		When("the payload is a subscription event for our subscription", func() {

			BeforeEach(func() {
				sample, err = Parse([]byte(jointEvent("47")), "47")
			})

			It("extracts the joint angles", func() {
				Expect(err).ToNot(HaveOccurred())
				Expect(sample.JointAngles).To(Equal([6]float64{10.5, -20.25, 30, 0.125, 45.5, -90}))
			})
		})

		When("the event belongs to another subscription", func() {

			BeforeEach(func() {
				sample, err = Parse([]byte(jointEvent("99")), "47")
			})

			It("is ignored", func() {
				Expect(err).To(HaveOccurred())
			})
		})

		When("no subscription check is requested", func() {

			BeforeEach(func() {
				sample, err = Parse([]byte(jointEvent("99")), "")
			})

			It("parses regardless of the embedded id", func() {
				Expect(err).ToNot(HaveOccurred())
			})
		})
	})

	Context("Malformed payloads", func() {
		When("the payload is neither json nor xml", func() {

			BeforeEach(func() {
				_, err = Parse([]byte("not a payload at all"), "")
			})

			It("returns an error instead of panicking", func() {
				Expect(err).To(HaveOccurred())
			})
		})

		When("the payload is empty", func() {

			BeforeEach(func() {
				_, err = Parse([]byte("  "), "")
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})

		When("the payload parses but carries no joint fields", func() {

			BeforeEach(func() {
				_, err = Parse([]byte(`{"some":"other message"}`), "")
			})

			It("returns an error so the message is dropped", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})
})
