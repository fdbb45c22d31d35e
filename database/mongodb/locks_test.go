package mongodb

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	var (
		locks   keyedMutex
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(sessionKey("a"))
			defer unlock()
			current := counter
			counter = current + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, locks.size())
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	var locks keyedMutex
	unlockUser := locks.Lock(userKey("u1"))
	unlockSession := locks.Lock(sessionKey("s1"))
	assert.Equal(t, 2, locks.size())

	unlockSession()
	unlockUser()
	assert.Zero(t, locks.size())
}
