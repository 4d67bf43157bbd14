package service

import "sync"

// keyedMutex 为每个访客提供一把互斥锁，串行化同一访客数据的读-改-写。
// 只在单进程内有效，多实例部署时仍可能丢失更新。
type keyedMutex struct {
	locks sync.Map // key: visitorID, value: *sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
