package telemetry

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Relay", func() {
	var relay *Relay

	BeforeEach(func() {
		relay = NewRelay()
	})

	Context("Reading", func() {
		When("nothing has been published", func() {
			It("reports no sample", func() {
				_, ok := relay.Latest()
				Expect(ok).To(BeFalse())
			})
		})

		When("the producer outruns the consumer", func() {
			It("hands out only the most recent sample", func() {
				for i := 1; i <= 100; i++ {
					relay.Publish(Sample{
						JointAngles: [6]float64{float64(i)},
						CapturedAt:  time.Now(),
					})
				}

				sample, ok := relay.Latest()
				Expect(ok).To(BeTrue())
				Expect(sample.JointAngles[0]).To(Equal(100.0), "older samples must be discarded, never replayed")
			})
		})

		When("the consumer reads twice without a new publish", func() {
			It("keeps returning the same latest sample", func() {
				relay.Publish(Sample{JointAngles: [6]float64{1}})

				first, _ := relay.Latest()
				second, _ := relay.Latest()
				Expect(first).To(Equal(second))
			})
		})
	})

	Context("Resetting", func() {
		When("a new connection attempt begins", func() {
			It("clears the slot so a stale sample is never observed", func() {
				relay.Publish(Sample{JointAngles: [6]float64{1}})
				relay.Reset()

				_, ok := relay.Latest()
				Expect(ok).To(BeFalse())
			})
		})
	})
})
