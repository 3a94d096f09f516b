package deduplicators

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// NewBloomFilter 创建基于布隆过滤器的 Deduplicator 实现
//
// n 为每代过滤器容纳的元素数， fp 为期望误判率
func NewBloomFilter(n uint, fp float64) *BloomFilter {
	return &BloomFilter{
		n:        n,
		fp:       fp,
		previous: bloom.NewWithEstimates(n, fp),
		current:  bloom.NewWithEstimates(n, fp),
	}
}

// BloomFilter 基于两代布隆过滤器的 Deduplicator 实现
//
// 当前代写满 n 个元素后成为上一代，最近 n 到 2n 个元素始终可被识别
type BloomFilter struct {
	n  uint
	fp float64

	lock     sync.Mutex
	cnt      uint
	previous *bloom.BloomFilter
	current  *bloom.BloomFilter
}

var _ Deduplicator = (*BloomFilter)(nil)

// Duplicate 校验是否重复的并记录下该内容
func (d *BloomFilter) Duplicate(data []byte) bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.previous.Test(data) {
		return true
	}
	if d.current.TestOrAdd(data) {
		return true
	}

	// 记录了一个新的数据
	d.cnt++

	// 检查更换过滤器
	if d.cnt >= d.n {
		d.previous = d.current
		d.current = bloom.NewWithEstimates(d.n, d.fp)
		d.cnt = 0
	}

	return false
}
