package publish

import "sync"

// keyedLock は下書きIDごとの多重実行防止ロック。
// 同じ下書きに対する公開処理は同時に1つしか走らない。
type keyedLock struct {
	mu     sync.Mutex
	locked map[string]struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locked: make(map[string]struct{})}
}

// tryAcquire はロック取得を試みる。既に取得されている場合はfalseを返す。
func (l *keyedLock) tryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.locked[key]; held {
		return false
	}
	l.locked[key] = struct{}{}
	return true
}

// release はロックを解放する。
func (l *keyedLock) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locked, key)
}
