package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateDefaultsToIdle(t *testing.T) {
	s := NewStore()

	sess := s.GetOrCreate("5218100000000")
	assert.Equal(t, StateIdle, sess.State)
	assert.Empty(t, sess.Fields)
	assert.Equal(t, 1, s.Len())
}

func TestGetOrCreateIsIdempotentRead(t *testing.T) {
	s := NewStore()
	s.Update("a", StateWaitingNationalID, Fields{FieldFullName: "Juan Perez"})

	first := s.GetOrCreate("a")
	second := s.GetOrCreate("a")
	assert.Equal(t, first, second)
}

func TestSnapshotIsDetached(t *testing.T) {
	s := NewStore()
	sess := s.GetOrCreate("a")
	sess.Fields[FieldFullName] = "mutated"

	assert.Empty(t, s.GetOrCreate("a").Fields)
}

func TestUpdateMergesAndOverwrites(t *testing.T) {
	s := NewStore()
	s.Update("a", StateWaitingNationalID, Fields{FieldFullName: "Juan Perez"})
	s.Update("a", StateWaitingBirthdate, Fields{FieldNationalID: "ABCD123456HDFGHI01"})
	s.Update("a", StateWaitingBirthdate, Fields{FieldNationalID: "WXYZ654321MDFGHI02"})

	sess := s.GetOrCreate("a")
	assert.Equal(t, StateWaitingBirthdate, sess.State)
	assert.Equal(t, Fields{
		FieldFullName:   "Juan Perez",
		FieldNationalID: "WXYZ654321MDFGHI02",
	}, sess.Fields)
}

func TestUpdateIsIdempotent(t *testing.T) {
	s := NewStore()
	patch := Fields{FieldFullName: "Juan Perez"}
	s.Update("a", StateWaitingNationalID, patch)
	once := s.GetOrCreate("a")
	s.Update("a", StateWaitingNationalID, patch)

	assert.Equal(t, once, s.GetOrCreate("a"))
}

func TestResetClearsFields(t *testing.T) {
	s := NewStore()
	s.Update("a", StateWaitingInsuranceType, Fields{FieldFullName: "Juan Perez"})
	s.Reset("a")

	sess := s.GetOrCreate("a")
	assert.Equal(t, StateIdle, sess.State)
	assert.Empty(t, sess.Fields)
}

func TestTouchTracksAttempts(t *testing.T) {
	s := NewStore()
	at := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	s.Touch("a", at)
	s.Touch("a", at.Add(time.Minute))

	sess := s.GetOrCreate("a")
	assert.Equal(t, 2, sess.AttemptCount)
	assert.Equal(t, at.Add(time.Minute), sess.LastAttempt)
}

func TestStateValid(t *testing.T) {
	for _, st := range States() {
		assert.True(t, st.Valid(), st)
	}
	assert.False(t, State("WAITING_POLIZA").Valid())
}

func TestConcurrentSendersDoNotInterfere(t *testing.T) {
	s := NewStore()
	const senders = 16
	const writes = 200

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := SenderID(fmt.Sprintf("sender-%d", i))
			for j := 0; j < writes; j++ {
				unlock := s.Lock(id)
				s.Update(id, StateWaitingNationalID, Fields{FieldFullName: fmt.Sprintf("name-%d", i)})
				unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, senders, s.Len())
	for i := 0; i < senders; i++ {
		sess := s.GetOrCreate(SenderID(fmt.Sprintf("sender-%d", i)))
		assert.Equal(t, Fields{FieldFullName: fmt.Sprintf("name-%d", i)}, sess.Fields)
	}
}

func TestLockSerialisesSameSender(t *testing.T) {
	s := NewStore()
	const workers = 8
	const rounds = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				unlock := s.Lock("shared")
				sess := s.GetOrCreate("shared")
				s.Update("shared", StateIdle, Fields{FieldFullName: sess.Fields[FieldFullName] + "x"})
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.GetOrCreate("shared").Fields[FieldFullName], workers*rounds)
}

func TestLockDoesNotBlockOtherSenders(t *testing.T) {
	s := NewStore()
	unlockA := s.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := s.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for sender b blocked on sender a")
	}
}
