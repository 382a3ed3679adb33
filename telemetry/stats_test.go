package telemetry

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Tracker", func() {
	var tracker *Tracker

	BeforeEach(func() {
		tracker = NewTracker()
	})

	When("attempts and successes are observed", func() {
		It("counts them independently", func() {
			tracker.ObserveAttempt()
			tracker.ObserveAttempt()
			tracker.ObserveAttempt()
			tracker.ObserveSuccess()

			snapshot := tracker.Snapshot()
			Expect(snapshot.TotalRequests).To(Equal(3))
			Expect(snapshot.SuccessfulRequests).To(Equal(1))
		})
	})

	When("two successes arrive apart in time", func() {
		It("derives the update frequency from the gap", func() {
			tracker.ObserveSuccess()
			time.Sleep(100 * time.Millisecond)
			tracker.ObserveSuccess()

			snapshot := tracker.Snapshot()
			// 100ms gap is 10Hz; leave room for scheduler jitter
			Expect(snapshot.FrequencyHz).To(BeNumerically("~", 10, 3))
		})
	})

	When("only one success has been observed", func() {
		It("reports no frequency yet", func() {
			tracker.ObserveSuccess()
			Expect(tracker.Snapshot().FrequencyHz).To(BeZero())
		})
	})

	When("the tracker is reset", func() {
		It("zeroes the snapshot", func() {
			tracker.ObserveAttempt()
			tracker.ObserveSuccess()
			tracker.Reset()

			snapshot := tracker.Snapshot()
			Expect(snapshot.TotalRequests).To(BeZero())
			Expect(snapshot.SuccessfulRequests).To(BeZero())
			Expect(snapshot.LastUpdate).To(BeZero())
		})
	})
})
