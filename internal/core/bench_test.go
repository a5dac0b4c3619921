package core

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

func benchmarkOfferRelay(b *testing.B, peers int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	caller := NewClient("caller")
	hub.RegisterClient(caller)
	caller.Commands <- &Command{Kind: CommandRegister, User: "caller"}

	// Extra registered peers make the registry realistic; only one is dialed.
	for i := 0; i < peers; i++ {
		c := NewClient("peer" + strconv.Itoa(i))
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandRegister, User: "peer" + strconv.Itoa(i)}
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}

	target := NewClient("t")
	hub.RegisterClient(target)
	target.Commands <- &Command{Kind: CommandRegister, User: "target"}

	for {
		if _, ok := hub.Presence().Resolve("target"); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}

	offer := json.RawMessage(`{"sdp":"bench"}`)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		caller.Commands <- &Command{Kind: CommandCallOffer, From: "caller", To: "target", Payload: offer}
		<-target.Events
	}
}

func BenchmarkOfferRelay_10(b *testing.B)  { benchmarkOfferRelay(b, 10) }
func BenchmarkOfferRelay_100(b *testing.B) { benchmarkOfferRelay(b, 100) }
func BenchmarkOfferRelay_500(b *testing.B) { benchmarkOfferRelay(b, 500) }
