package nhttp

import (
	"sync"
	"sync/atomic"
	"time"
)

// The Date header value is refreshed once a second instead of being
// formatted per response.
var (
	serverDate     atomic.Value
	serverDateOnce sync.Once // serverDateOnce.Do(updateServerDate)
)

func updateServerDate() {
	refreshServerDate()
	go func() {
		for {
			time.Sleep(time.Second)
			refreshServerDate()
		}
	}()
}

func refreshServerDate() {
	b := AppendHTTPDate(nil, time.Now())
	serverDate.Store(b)
}

func appendServerDate(dst []byte) []byte {
	serverDateOnce.Do(updateServerDate)
	return append(dst, serverDate.Load().([]byte)...)
}
