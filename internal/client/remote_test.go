package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-canvas/internal/model"
)

var t0 = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func sp(id string, x, y float64) model.StrokePoint {
	return model.StrokePoint{X: x, Y: y, Color: "#000000", Size: 3, StrokeID: id}
}

func TestRemoteStrokes_InterleavedStrokesStayIsolated(t *testing.T) {
	tbl := NewRemoteStrokes(0)

	var segs []Segment
	record := func(s Segment, ok bool) {
		require.True(t, ok)
		segs = append(segs, s)
	}

	record(tbl.Start(sp("A:1", 0.1, 0.1), t0))
	record(tbl.Start(sp("B:1", 0.9, 0.9), t0))
	record(tbl.Move(sp("A:1", 0.2, 0.2), t0))
	record(tbl.Move(sp("B:1", 0.8, 0.8), t0))
	assert.True(t, tbl.End("A:1"))
	assert.True(t, tbl.End("B:1"))

	require.Len(t, segs, 4)
	aMove, bMove := segs[2], segs[3]

	assert.Equal(t, "A:1", aMove.StrokeID)
	assert.Equal(t, 0.1, aMove.From.X)
	assert.Equal(t, 0.2, aMove.To.X)

	assert.Equal(t, "B:1", bMove.StrokeID)
	assert.Equal(t, 0.9, bMove.From.X)
	assert.Equal(t, 0.8, bMove.To.X)

	assert.Equal(t, 0, tbl.Len())
}

func TestRemoteStrokes_MoveWithoutStartIsImplicitStart(t *testing.T) {
	tbl := NewRemoteStrokes(0)

	seg, ok := tbl.Move(sp("A:3", 0.4, 0.5), t0)
	require.True(t, ok)
	assert.True(t, seg.IsDot())
	assert.Equal(t, []string{"A:3"}, tbl.Active())

	seg, ok = tbl.Move(sp("A:3", 0.6, 0.5), t0)
	require.True(t, ok)
	assert.Equal(t, 0.4, seg.From.X)
	assert.Equal(t, 0.6, seg.To.X)
}

func TestRemoteStrokes_IgnoresOwnStrokes(t *testing.T) {
	tbl := NewRemoteStrokes(0)
	tbl.SetSelf("me")

	_, ok := tbl.Start(sp("me:1", 0.1, 0.1), t0)
	assert.False(t, ok)
	_, ok = tbl.Move(sp("me:1", 0.2, 0.2), t0)
	assert.False(t, ok)

	_, ok = tbl.Start(sp("other:1", 0.1, 0.1), t0)
	assert.True(t, ok)
	assert.Equal(t, []string{"other:1"}, tbl.Active())
}

func TestRemoteStrokes_EndUnknownIsNoop(t *testing.T) {
	tbl := NewRemoteStrokes(0)
	assert.False(t, tbl.End("ghost:1"))
	assert.False(t, tbl.End(""))
}

func TestRemoteStrokes_ReapDropsStaleEntries(t *testing.T) {
	tbl := NewRemoteStrokes(10 * time.Second)

	tbl.Start(sp("A:1", 0.1, 0.1), t0)
	tbl.Start(sp("B:1", 0.1, 0.1), t0)
	tbl.Move(sp("B:1", 0.2, 0.2), t0.Add(8*time.Second))

	assert.Empty(t, tbl.Reap(t0.Add(10*time.Second)))
	assert.Equal(t, []string{"A:1"}, tbl.Reap(t0.Add(11*time.Second)))
	assert.Equal(t, []string{"B:1"}, tbl.Active())
	assert.Equal(t, []string{"B:1"}, tbl.Reap(t0.Add(19*time.Second)))
	assert.Equal(t, 0, tbl.Len())
}

func TestRemoteStrokes_AnonymousStrokesDoNotShareState(t *testing.T) {
	tbl := NewRemoteStrokes(0)

	// 구 클라이언트 두 명이 strokeId 없이 번갈아 그림
	segA, ok := tbl.Start(sp("", 0.1, 0.1), t0)
	require.True(t, ok)
	segB, ok := tbl.Start(sp("", 0.9, 0.9), t0)
	require.True(t, ok)
	move, ok := tbl.Move(sp("", 0.2, 0.2), t0)
	require.True(t, ok)

	assert.True(t, segA.IsDot())
	assert.True(t, segB.IsDot())
	assert.True(t, move.IsDot())
	assert.Equal(t, model.Point{X: 0.2, Y: 0.2, Color: "#000000", Size: 3}, move.From)

	assert.Equal(t, 0, tbl.Len())
	assert.False(t, tbl.End(""))
}
