package objectstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLinker struct {
	mock.Mock
}

func (m *mockLinker) Link(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCachedLinker_CachesLinks(t *testing.T) {
	next := &mockLinker{}
	next.On("Link", mock.Anything, "solutions/1/2/a.pdf").Return("https://s3/a.pdf?sig=1", nil).Once()

	linker, err := NewCachedLinker(context.Background(), next, time.Minute, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = linker.Close() })

	for i := 0; i < 3; i++ {
		link, err := linker.Link(context.Background(), "solutions/1/2/a.pdf")
		require.NoError(t, err)
		assert.Equal(t, "https://s3/a.pdf?sig=1", link)
	}

	next.AssertExpectations(t)
}

func TestCachedLinker_DoesNotCacheFailures(t *testing.T) {
	next := &mockLinker{}
	failure := errors.New("storage down")
	next.On("Link", mock.Anything, "k").Return("", failure).Once()
	next.On("Link", mock.Anything, "k").Return("https://s3/k", nil).Once()

	linker, err := NewCachedLinker(context.Background(), next, time.Minute, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = linker.Close() })

	_, err = linker.Link(context.Background(), "k")
	assert.ErrorIs(t, err, failure)

	link, err := linker.Link(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "https://s3/k", link)
	next.AssertExpectations(t)
}

func TestNewCachedLinker_RejectsZeroTTL(t *testing.T) {
	_, err := NewCachedLinker(context.Background(), &mockLinker{}, 0, testLogger())
	assert.Error(t, err)
}

func TestSolutionKey(t *testing.T) {
	key := SolutionKey(4, 99, "../../etc/hw 1.pdf")
	assert.True(t, strings.HasPrefix(key, "solutions/4/99/"), key)
	assert.True(t, strings.HasSuffix(key, "-hw 1.pdf"), key)
	assert.NotContains(t, strings.TrimPrefix(key, "solutions/4/99/"), "/")

	assert.True(t, strings.HasSuffix(SolutionKey(1, 1, ""), "-solution"))
	assert.NotEqual(t, SolutionKey(1, 1, "a"), SolutionKey(1, 1, "a"))
}
