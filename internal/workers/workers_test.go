package workers

import (
	"context"
	"errors"
	"testing"
)

func TestPartitionByBlockSize(t *testing.T) {
	blocks := Plan{BlockSize: 4}.Partition(10)
	want := []Block{{0, 4}, {4, 8}, {8, 10}}
	if len(blocks) != len(want) {
		t.Fatalf("unexpected blocks: %+v", blocks)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Fatalf("block %d: got=%+v want=%+v", i, blocks[i], want[i])
		}
	}
}

func TestPartitionByBlockCount(t *testing.T) {
	blocks := Plan{Blocks: 3}.Partition(10)
	want := []Block{{0, 4}, {4, 7}, {7, 10}}
	for i := range want {
		if blocks[i] != want[i] {
			t.Fatalf("block %d: got=%+v want=%+v", i, blocks[i], want[i])
		}
	}

	if got := (Plan{Blocks: 50}).Partition(3); len(got) != 3 {
		t.Fatalf("expected block count clamped to item count, got %d", len(got))
	}
	if got := (Plan{}).Partition(7); len(got) != 1 || got[0] != (Block{0, 7}) {
		t.Fatalf("expected a single block, got %+v", got)
	}
}

func TestMapPreservesInputOrder(t *testing.T) {
	items := make([]int, 103)
	for i := range items {
		items[i] = i
	}
	for _, plan := range []Plan{
		{Jobs: 1},
		{Jobs: 4, Blocks: 8},
		{Jobs: 3, BlockSize: 7},
		{Jobs: 16, BlockSize: 1},
	} {
		out, err := MapItems(context.Background(), items, plan, func(idx int, item int) (int, error) {
			return idx*1000 + item*2, nil
		})
		if err != nil {
			t.Fatalf("map %+v: %v", plan, err)
		}
		if len(out) != len(items) {
			t.Fatalf("plan %+v: got %d results", plan, len(out))
		}
		for i, v := range out {
			if v != i*1000+i*2 {
				t.Fatalf("plan %+v: result %d out of order: %d", plan, i, v)
			}
		}
	}
}

func TestMapReturnsError(t *testing.T) {
	boom := errors.New("boom")
	_, err := MapItems(context.Background(), []int{1, 2, 3, 4}, Plan{Jobs: 2, BlockSize: 1}, func(idx int, item int) (int, error) {
		if item == 3 {
			return 0, boom
		}
		return item, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestMapRejectsNegativePlan(t *testing.T) {
	_, err := MapItems(context.Background(), []int{1}, Plan{BlockSize: -1}, func(int, int) (int, error) { return 0, nil })
	if err == nil {
		t.Fatal("expected plan validation error")
	}
}

func TestMapEmptyInput(t *testing.T) {
	out, err := MapItems(context.Background(), []int(nil), Plan{Jobs: 4}, func(int, int) (int, error) { return 0, nil })
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty result, got %v %v", out, err)
	}
}
