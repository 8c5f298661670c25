package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"trustledger/internal/ledger"
	id "trustledger/pkg/domain"
)

func TestManualStartsAtGivenHeight(t *testing.T) {
	m := ledger.NewManual(100)
	h, err := m.CurrentHeight(context.Background())
	require.NoError(t, err)
	require.Equal(t, id.Height(100), h)
}

func TestManualAdvance(t *testing.T) {
	m := ledger.NewManual(1)
	require.Equal(t, id.Height(11), m.Advance(10))

	h, err := m.CurrentHeight(context.Background())
	require.NoError(t, err)
	require.Equal(t, id.Height(11), h)
}

func TestManualSetNeverMovesBackwards(t *testing.T) {
	m := ledger.NewManual(50)
	m.Set(40)

	h, err := m.CurrentHeight(context.Background())
	require.NoError(t, err)
	require.Equal(t, id.Height(50), h)

	m.Set(60)
	h, err = m.CurrentHeight(context.Background())
	require.NoError(t, err)
	require.Equal(t, id.Height(60), h)
}

func TestManualConcurrentAdvance(t *testing.T) {
	m := ledger.NewManual(0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Advance(1)
			}
		}()
	}
	wg.Wait()

	h, err := m.CurrentHeight(context.Background())
	require.NoError(t, err)
	require.Equal(t, id.Height(1000), h)
}
