package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

type fakeTransport struct {
	mu       sync.Mutex
	written  chan []byte
	failWith error
	block    chan struct{}
	closed   []int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{written: make(chan []byte, 64)}
}

func (f *fakeTransport) WriteMessage(payload []byte) error {
	f.mu.Lock()
	fail, block := f.failWith, f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if fail != nil {
		return fail
	}
	f.written <- payload
	return nil
}

func (f *fakeTransport) Close(code int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, code)
	return nil
}

func (f *fakeTransport) closeCodes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.closed...)
}

func recvEvent(t *testing.T, ch <-chan []byte, timeout time.Duration) Event {
	t.Helper()
	select {
	case raw := <-ch:
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for realtime event")
	}
	return Event{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestRegistryBroadcastOrderingAndFanOut(t *testing.T) {
	reg := NewRegistry(mustTestLogger(t))
	family := uuid.New()
	channel := PlantChannel(family)

	a, b := newFakeTransport(), newFakeTransport()
	pa := NewPeer(uuid.New(), family, a, 8)
	pb := NewPeer(uuid.New(), family, b, 8)
	reg.Add(channel, pa)
	reg.Add(channel, pb)
	go pa.Run()
	go pb.Run()
	defer pa.Close(CloseNormal)
	defer pb.Close(CloseNormal)

	for i := 1; i <= 3; i++ {
		if n := reg.Broadcast(Message{Channel: channel, Event: Event{Type: EventPlantGrew, FamilyID: family, Experience: i}}); n != 2 {
			t.Fatalf("delivered: want=2 got=%d", n)
		}
	}
	for _, tr := range []*fakeTransport{a, b} {
		for i := 1; i <= 3; i++ {
			ev := recvEvent(t, tr.written, time.Second)
			if ev.Experience != i {
				t.Fatalf("order: want experience=%d got=%d", i, ev.Experience)
			}
		}
	}

	other := newFakeTransport()
	po := NewPeer(uuid.New(), uuid.New(), other, 8)
	reg.Add(PlantChannel(po.FamilyID), po)
	reg.Broadcast(Message{Channel: channel, Event: Event{Type: EventPlantGrew}})
	select {
	case <-other.written:
		t.Fatalf("event leaked to another family's channel")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegistryRemovesFailingPeerWithoutBlockingOthers(t *testing.T) {
	reg := NewRegistry(mustTestLogger(t))
	family := uuid.New()
	channel := ActivityChannel(family)

	bad := newFakeTransport()
	bad.failWith = errors.New("broken pipe")
	good := newFakeTransport()
	pBad := NewPeer(uuid.New(), family, bad, 8)
	pGood := NewPeer(uuid.New(), family, good, 8)
	reg.Add(channel, pBad)
	reg.Add(channel, pGood)
	go pBad.Run()
	go pGood.Run()
	defer pGood.Close(CloseNormal)

	reg.Broadcast(Message{Channel: channel, Event: Event{Type: EventActivitySubmitted, Points: 5}})
	if ev := recvEvent(t, good.written, time.Second); ev.Points != 5 {
		t.Fatalf("good peer: want points=5 got=%d", ev.Points)
	}
	waitFor(t, func() bool { return reg.Count(channel) == 1 })
	if codes := bad.closeCodes(); len(codes) != 1 || codes[0] != CloseGoingAway {
		t.Fatalf("bad peer close codes: %v", codes)
	}
}

func TestRegistryDropsSlowPeer(t *testing.T) {
	reg := NewRegistry(mustTestLogger(t))
	family := uuid.New()
	channel := PlantChannel(family)

	slow := newFakeTransport()
	slow.block = make(chan struct{})
	defer close(slow.block)
	p := NewPeer(uuid.New(), family, slow, 1)
	reg.Add(channel, p)
	go p.Run()

	// One payload is held by the blocked writer, one fills the queue, the next overflows.
	for i := 0; i < 3; i++ {
		reg.Broadcast(Message{Channel: channel, Event: Event{Type: EventPlantGrew}})
		time.Sleep(10 * time.Millisecond)
	}
	if n := reg.Count(channel); n != 0 {
		t.Fatalf("slow peer still registered: want=0 got=%d", n)
	}
	waitFor(t, func() bool { return len(slow.closeCodes()) > 0 })
	if codes := slow.closeCodes(); len(codes) != 1 || codes[0] != ClosePolicyViolation {
		t.Fatalf("slow peer close codes: %v", codes)
	}
}

// stuckTransport models a socket whose writes hang until the connection is closed,
// with a Close that does not wait for the write in flight.
type stuckTransport struct {
	release   chan struct{}
	closeOnce sync.Once
	closed    chan int
}

func newStuckTransport() *stuckTransport {
	return &stuckTransport{release: make(chan struct{}), closed: make(chan int, 1)}
}

func (s *stuckTransport) WriteMessage([]byte) error {
	<-s.release
	return errors.New("use of closed connection")
}

func (s *stuckTransport) Close(code int) error {
	s.closeOnce.Do(func() {
		s.closed <- code
		close(s.release)
	})
	return nil
}

func TestRegistryOverflowDoesNotStallChannel(t *testing.T) {
	reg := NewRegistry(mustTestLogger(t))
	family := uuid.New()
	channel := PlantChannel(family)

	stuck := newStuckTransport()
	fast := newFakeTransport()
	pStuck := NewPeer(uuid.New(), family, stuck, 1)
	pFast := NewPeer(uuid.New(), family, fast, 16)
	reg.Add(channel, pStuck)
	reg.Add(channel, pFast)
	go pStuck.Run()
	go pFast.Run()
	defer pFast.Close(CloseNormal)

	start := time.Now()
	for i := 1; i <= 5; i++ {
		reg.Broadcast(Message{Channel: channel, Event: Event{Type: EventPlantGrew, FamilyID: family, Experience: i}})
		time.Sleep(5 * time.Millisecond)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("broadcasts stalled behind the stuck peer: %v", elapsed)
	}
	for i := 1; i <= 5; i++ {
		if ev := recvEvent(t, fast.written, time.Second); ev.Experience != i {
			t.Fatalf("fast peer order: want experience=%d got=%d", i, ev.Experience)
		}
	}
	select {
	case code := <-stuck.closed:
		if code != ClosePolicyViolation {
			t.Fatalf("stuck peer close code: want=%d got=%d", ClosePolicyViolation, code)
		}
	case <-time.After(time.Second):
		t.Fatalf("stuck peer was never closed")
	}
	if n := reg.Count(channel); n != 1 {
		t.Fatalf("peers left: want=1 got=%d", n)
	}
}

func TestRegistryConcurrentAddRemoveDuringBroadcast(t *testing.T) {
	reg := NewRegistry(mustTestLogger(t))
	family := uuid.New()
	channel := PlantChannel(family)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p := NewPeer(uuid.New(), family, newFakeTransport(), 64)
			reg.Add(channel, p)
			go p.Run()
			time.Sleep(time.Millisecond)
			p.Close(CloseNormal)
		}()
		go func() {
			defer wg.Done()
			reg.Broadcast(Message{Channel: channel, Event: Event{Type: EventPlantGrew}})
		}()
	}
	wg.Wait()
	if n := reg.Count(channel); n != 0 {
		t.Fatalf("peers left after close: want=0 got=%d", n)
	}
	if got := len(reg.Snapshot(channel)); got != 0 {
		t.Fatalf("snapshot after close: want=0 got=%d", got)
	}
}

func TestKindOf(t *testing.T) {
	id := uuid.New()
	if got := KindOf(ActivityChannel(id)); got != KindActivity {
		t.Fatalf("kind: want=%s got=%s", KindActivity, got)
	}
}
