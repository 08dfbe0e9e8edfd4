package samplers

import (
	"sync"
)

/*
Prefetch is a set of forked samplers drawing training batches in background
*/
type Prefetch struct {
	c    chan prefetched
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

type prefetched struct {
	batch *Batch
	err   error
}

/*
NewPrefetch starts workers each drawing batches of the current mode from its own fork of the sampler.
Batches are buffered up to depth per worker. Stop must be called to release workers.
*/
func NewPrefetch(s Forker, workers, batchSize, depth int) *Prefetch {
	if workers <= 0 {
		workers = 1
	}
	if depth <= 0 {
		depth = 1
	}
	p := &Prefetch{c: make(chan prefetched, workers*depth), stop: make(chan struct{})}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		f := s.Fork(i)
		go func() {
			defer p.wg.Done()
			for {
				b, err := f.Sample(batchSize)
				select {
				case p.c <- prefetched{b, err}:
				case <-p.stop:
					return
				}
				if err != nil {
					return
				}
			}
		}()
	}
	return p
}

/*
Next returns the next batch drawn by any of workers
*/
func (p *Prefetch) Next() (*Batch, error) {
	x := <-p.c
	return x.batch, x.err
}

/*
Stop terminates workers and waits until they are done
*/
func (p *Prefetch) Stop() {
	p.once.Do(func() {
		close(p.stop)
		p.wg.Wait()
	})
}
