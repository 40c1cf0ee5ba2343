package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

type ratio struct{ keep, every uint64 }

// ratioSampler lets keep out of every events through, counting in a shared
// sequence. A zero ratio lets everything through.
type ratioSampler struct {
	r   atomic.Pointer[ratio]
	seq atomic.Uint64
}

func newRatioSampler(keep, every int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(keep, every)
	return s
}

// Set replaces the ratio and restarts the sequence. keep is clamped to every.
func (s *ratioSampler) Set(keep, every int) {
	if keep <= 0 || every <= 0 {
		s.r.Store(nil)
	} else {
		s.r.Store(&ratio{keep: uint64(min(keep, every)), every: uint64(every)})
	}
	s.seq.Store(0)
}

func (s *ratioSampler) Allow() bool {
	r := s.r.Load()
	if r == nil {
		return true
	}
	return (s.seq.Add(1)-1)%r.every < r.keep
}

// parseRatioSpec reads "n/d" or a bare "d" (meaning 1/d). Anything else
// yields 0/0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	num, den, hasSlash := strings.Cut(spec, "/")
	if !hasSlash {
		num, den = "1", spec
	}
	n, errN := strconv.Atoi(strings.TrimSpace(num))
	d, errD := strconv.Atoi(strings.TrimSpace(den))
	if errN != nil || errD != nil || (!hasSlash && d <= 0) {
		return 0, 0
	}
	return n, d
}
