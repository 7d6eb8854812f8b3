// Command webhookload posts synthetic Messenger notifications at a webhook
// endpoint and reports how many were acknowledged.
package main

import (
	"fmt"
	"log"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	flag "github.com/spf13/pflag"
	"github.com/valyala/fasthttp"
)

type item struct {
	Sender    map[string]string `json:"sender"`
	Recipient map[string]string `json:"recipient"`
	Timestamp int64             `json:"timestamp"`
	Message   map[string]string `json:"message"`
}

type entry struct {
	ID        string `json:"id"`
	Time      int64  `json:"time"`
	Messaging []item `json:"messaging"`
}

type envelope struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

func buildBody(pageID string, seq uint64, perEntry int) ([]byte, error) {
	now := time.Now().UnixMilli()
	e := entry{ID: pageID, Time: now}
	for i := 0; i < perEntry; i++ {
		e.Messaging = append(e.Messaging, item{
			Sender:    map[string]string{"id": "load-" + strconv.FormatUint(seq, 10)},
			Recipient: map[string]string{"id": pageID},
			Timestamp: now,
			Message:   map[string]string{"mid": fmt.Sprintf("m-%d-%d", seq, i), "text": "ping"},
		})
	}
	return json.Marshal(envelope{Object: "page", Entry: []entry{e}})
}

func main() {
	var url, pageID string
	var rate, workers, perEntry int
	var dur time.Duration
	flag.StringVar(&url, "url", "http://127.0.0.1:8080/webhook", "target URL")
	flag.StringVar(&pageID, "page", "load-page", "page id placed in every entry")
	flag.IntVar(&rate, "rate", 1000, "requests per second")
	flag.IntVar(&perEntry, "events", 1, "messaging items per request")
	flag.DurationVar(&dur, "duration", 30*time.Second, "duration")
	flag.IntVar(&workers, "workers", runtime.NumCPU()*2, "workers")
	flag.Parse()
	if rate < 1 {
		log.Fatal("rate must be positive")
	}

	client := &fasthttp.Client{MaxConnsPerHost: workers, ReadTimeout: 3 * time.Second, WriteTimeout: 3 * time.Second}

	var seq, sent, ok, bad, terr uint64
	work := make(chan struct{}, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := fasthttp.AcquireRequest()
			resp := fasthttp.AcquireResponse()
			defer fasthttp.ReleaseRequest(req)
			defer fasthttp.ReleaseResponse(resp)
			for range work {
				body, err := buildBody(pageID, atomic.AddUint64(&seq, 1), perEntry)
				if err != nil {
					log.Fatal(err)
				}
				req.Reset()
				req.SetRequestURI(url)
				req.Header.SetMethod(fasthttp.MethodPost)
				req.Header.SetContentType("application/json")
				req.SetBodyRaw(body)
				err = client.Do(req, resp)
				atomic.AddUint64(&sent, 1)
				if err != nil {
					atomic.AddUint64(&terr, 1)
					continue
				}
				if resp.StatusCode() == fasthttp.StatusOK {
					atomic.AddUint64(&ok, 1)
				} else {
					atomic.AddUint64(&bad, 1)
				}
			}
		}()
	}

	fmt.Printf("posting to %s for %s @ %d rps (workers=%d)\n", url, dur, rate, workers)
	tick := time.NewTicker(time.Second / time.Duration(rate))
	end := time.After(dur)
loop:
	for {
		select {
		case <-end:
			break loop
		case <-tick.C:
			work <- struct{}{}
		}
	}
	tick.Stop()
	close(work)
	wg.Wait()
	fmt.Printf("sent=%d ok=%d bad=%d transport_err=%d\n",
		atomic.LoadUint64(&sent), atomic.LoadUint64(&ok), atomic.LoadUint64(&bad), atomic.LoadUint64(&terr))
}
