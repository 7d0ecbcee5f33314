package aggregator

import (
	"fmt"
	"testing"

	"briefy/internal/collector"
)

func trend(id string) collector.Trend {
	return collector.Trend{ID: id, Title: "T-" + id, URL: "https://example.com/" + id}
}

func scored(id string, score int) collector.Trend {
	t := trend(id)
	t.Score = &score
	return t
}

// 合并两个快照的钉死场景：
// x: count=2, total_rank=3 -> round(1.2+0.267)=1
// y: count=1, total_rank=1 -> round(0.6+0.4)=1
// 同为 1 分时 x 先出现，稳定排序保持 x 在前。
func TestAggregateTrendsScoreAndTieBreak(t *testing.T) {
	// A: x 名次 1；B: y 名次 1，x 名次 2
	snapshots := [][]collector.Trend{
		{trend("x")},
		{trend("y"), trend("x")},
	}
	out := AggregateTrends(snapshots)

	if len(out) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(out))
	}
	if out[0].ID != "x" || out[1].ID != "y" {
		t.Fatalf("tie-break order changed: got [%s %s], want [x y]", out[0].ID, out[1].ID)
	}
	if *out[0].Score != 1 {
		t.Fatalf("score(x) = %d, want 1", *out[0].Score)
	}
	if *out[1].Score != 1 {
		t.Fatalf("score(y) = %d, want 1", *out[1].Score)
	}
}

func TestAggregateTrendsNativeScoreMean(t *testing.T) {
	snapshots := [][]collector.Trend{
		{scored("a", 100)},
		{scored("a", 201)},
	}
	out := AggregateTrends(snapshots)
	if len(out) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(out))
	}
	// floor((100+201)/2) = 150
	if *out[0].Score != 150 {
		t.Fatalf("score = %d, want 150", *out[0].Score)
	}
}

func TestAggregateTrendsCapAt50(t *testing.T) {
	var snap []collector.Trend
	for i := 0; i < 80; i++ {
		snap = append(snap, trend(fmt.Sprintf("id-%d", i)))
	}
	out := AggregateTrends([][]collector.Trend{snap})
	if len(out) != 50 {
		t.Fatalf("expected cap at 50, got %d", len(out))
	}
}

func TestAggregateTrendsIdempotent(t *testing.T) {
	snapshots := [][]collector.Trend{
		{trend("a"), trend("b"), trend("c")},
		{trend("c"), trend("a")},
		{trend("b"), trend("d")},
	}
	first := AggregateTrends(snapshots)
	second := AggregateTrends(snapshots)

	if len(first) != len(second) {
		t.Fatalf("length differs between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || *first[i].Score != *second[i].Score {
			t.Fatalf("run differs at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

// 无来源热度值时：出现次数越多得分不降，平均名次越靠前得分不降
func TestAggregateTrendsMonotonicity(t *testing.T) {
	// 平均名次固定为 1，比较 count=2 与 count=4
	twice := AggregateTrends([][]collector.Trend{
		{trend("m")}, {trend("m")},
	})
	fourTimes := AggregateTrends([][]collector.Trend{
		{trend("m")}, {trend("m")}, {trend("m")}, {trend("m")},
	})
	if *fourTimes[0].Score < *twice[0].Score {
		t.Fatalf("score decreased with higher count: %d < %d", *fourTimes[0].Score, *twice[0].Score)
	}

	// count 固定为 1，比较名次 1 与名次 10
	rank1 := AggregateTrends([][]collector.Trend{{trend("m")}})
	var snap []collector.Trend
	for i := 0; i < 9; i++ {
		snap = append(snap, trend(fmt.Sprintf("filler-%d", i)))
	}
	snap = append(snap, trend("m"))
	rank10 := AggregateTrends([][]collector.Trend{snap})

	var mScore int
	for _, it := range rank10 {
		if it.ID == "m" {
			mScore = *it.Score
		}
	}
	if *rank1[0].Score < mScore {
		t.Fatalf("better rank should not score lower: rank1=%d rank10=%d", *rank1[0].Score, mScore)
	}
}

// 后到的观测用非空描述覆盖，空描述不会抹掉已有内容
func TestAggregateTrendsDescriptionEnrichment(t *testing.T) {
	withDesc := trend("a")
	withDesc.Description = "丰富的描述"
	bare := trend("a")

	out := AggregateTrends([][]collector.Trend{
		{bare},
		{withDesc},
		{bare}, // 空描述的后续观测
	})
	if out[0].Description != "丰富的描述" {
		t.Fatalf("description = %q, want enriched value kept", out[0].Description)
	}
}
