package pool

import (
	"sync/atomic"
	"testing"

	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

var _ = Suite(&PoolTestSuite{})

type PoolTestSuite struct{}

func (s *PoolTestSuite) TestPool(c *C) {
	var jobCount int32

	job := func(input interface{}) {
		atomic.AddInt32(&jobCount, int32(input.(int)))
	}
	p := NewPool(3, job)

	cc := make(chan interface{})
	go func() {
		for i := 0; i < 10; i++ {
			cc <- 1
		}
		close(cc)
	}()
	p.Work(cc)

	c.Assert(atomic.LoadInt32(&jobCount), Equals, int32(10))
}

func (s *PoolTestSuite) TestPoolLimit(c *C) {
	var running, peak int32
	release := make(chan struct{})

	job := func(interface{}) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
	}
	p := NewPool(2, job)

	cc := make(chan interface{}, 5)
	for i := 0; i < 5; i++ {
		cc <- i
	}
	close(cc)
	go func() {
		for i := 0; i < 5; i++ {
			release <- struct{}{}
		}
	}()
	p.Work(cc)

	c.Assert(atomic.LoadInt32(&peak) <= 2, Equals, true)
	c.Assert(atomic.LoadInt32(&running), Equals, int32(0))
}
