package runner_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/pkg/runner"
)

// fakeTask finishes immediately with err, or blocks until stopped.
type fakeTask struct {
	name  string
	err   error
	block bool

	mu      sync.Mutex
	stopped bool
	stop    chan struct{}
}

func newFakeTask(name string) *fakeTask {
	return &fakeTask{name: name, stop: make(chan struct{})}
}

func (t *fakeTask) Name() string { return t.name }

func (t *fakeTask) Run(ctx context.Context) error {
	if t.block {
		<-t.stop
		return nil
	}
	return t.err
}

func (t *fakeTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.stopped = true
		close(t.stop)
	}
}

func (t *fakeTask) wasStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

var _ = Describe("Runner", func() {
	var logger *logrus.Logger

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	})

	It("returns nil when every task completes cleanly", func() {
		// Repeated because clean completion closes the error channel and
		// the done channel at the same moment; either branch must report
		// success.
		for i := 0; i < 25; i++ {
			r := runner.New(logger, newFakeTask("a"), newFakeTask("b"))
			err := r.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("propagates a task failure and stops the remaining tasks", func() {
		failing := newFakeTask("failing")
		failing.err = fmt.Errorf("disk full")
		blocking := newFakeTask("blocking")
		blocking.block = true

		r := runner.New(logger, failing, blocking)
		err := r.Run(context.Background())

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("task failing failed"))
		Expect(blocking.wasStopped()).To(BeTrue())
	})

	It("stops tasks when the context is canceled", func() {
		blocking := newFakeTask("blocking")
		blocking.block = true

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)

		r := runner.New(logger, blocking)
		err := r.Run(ctx)

		Expect(err).To(MatchError(context.Canceled))
		Expect(blocking.wasStopped()).To(BeTrue())
	})
})
