package srs

import (
	"math"
	"sort"
	"time"
)

// 下次到期距复习时刻达到一天即视为"今天完成"
const reviewedThresholdSeconds = 86400.0

// DayQueue 是某用户某个日历日的复习队列快照
// todays/reviewed 两个有序列表互不相交；这里只做纯值运算，持久化由调用方负责
type DayQueue struct {
	KanjiCount    int
	TodaysCards   []uint
	ReviewedCards []uint
	ReviewedCount int
	Completed     bool
}

// Clone 返回队列的深拷贝
func (q DayQueue) Clone() DayQueue {
	out := q
	out.TodaysCards = append([]uint(nil), q.TodaysCards...)
	out.ReviewedCards = append([]uint(nil), q.ReviewedCards...)
	return out
}

// BuildQueue 构建当日队列：对每张卡模拟一次 Good 复习得到临时到期时间，
// 按 (模拟到期 − now) 升序取前 limit 张作为今日卡片
func (s *Scheduler) BuildQueue(cards []Card, limit int, now time.Time) DayQueue {
	if limit < 0 {
		limit = 0
	}

	type scored struct {
		id    uint
		until float64
	}
	ranked := make([]scored, 0, len(cards))
	for _, c := range cards {
		simulated, _ := s.ReviewCard(c, RatingGood, now, nil)
		until := math.Inf(1)
		if simulated.Due != nil {
			until = simulated.Due.Sub(now).Seconds()
		}
		ranked = append(ranked, scored{id: c.ID, until: until})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].until < ranked[j].until
	})

	if limit > len(ranked) {
		limit = len(ranked)
	}
	ids := make([]uint, 0, limit)
	for _, r := range ranked[:limit] {
		ids = append(ids, r.id)
	}

	return DayQueue{
		KanjiCount:    len(ids),
		TodaysCards:   ids,
		ReviewedCards: []uint{},
		ReviewedCount: 0,
		Completed:     false,
	}
}

// ApplyReview 在一次真实复习后重新安置卡片：
//   - 今日列表只剩它一张时无条件移入已复习，避免队列卡死
//   - 下次到期距现在达到一天的移入已复习
//   - 短间隔的卡移到今日列表末尾继续复习
//   - 已复习的卡保持不动；两个列表都不含它时只允许追加到已复习
func ApplyReview(q DayQueue, cardID uint, due *time.Time, reviewTime time.Time) DayQueue {
	out := q.Clone()

	delta := math.Inf(1)
	if due != nil {
		delta = due.Sub(reviewTime).Seconds()
	}

	inToday := containsID(out.TodaysCards, cardID)
	inReviewed := containsID(out.ReviewedCards, cardID)

	switch {
	case inToday:
		if len(out.TodaysCards) == 1 || delta >= reviewedThresholdSeconds {
			out.TodaysCards = removeID(out.TodaysCards, cardID)
			out.ReviewedCards = append(out.ReviewedCards, cardID)
		} else {
			out.TodaysCards = removeID(out.TodaysCards, cardID)
			out.TodaysCards = append(out.TodaysCards, cardID)
		}
	case inReviewed:
		// 已完成的卡不回流
	default:
		// 计划外复习：只有间隔够长才计入今日成果，绝不插入待复习列表
		if delta >= reviewedThresholdSeconds {
			out.ReviewedCards = append(out.ReviewedCards, cardID)
		}
	}

	return Normalize(out)
}

// Normalize 收尾清理：稳定去重、强制两列表不相交（已复习优先）、
// 重算计数；kanji_count 只增不减。该操作幂等
func Normalize(q DayQueue) DayQueue {
	out := q.Clone()
	out.ReviewedCards = dedupIDs(out.ReviewedCards)
	out.TodaysCards = dedupIDs(out.TodaysCards)

	reviewed := make(map[uint]struct{}, len(out.ReviewedCards))
	for _, id := range out.ReviewedCards {
		reviewed[id] = struct{}{}
	}
	kept := out.TodaysCards[:0]
	for _, id := range out.TodaysCards {
		if _, done := reviewed[id]; !done {
			kept = append(kept, id)
		}
	}
	out.TodaysCards = kept

	out.ReviewedCount = len(out.ReviewedCards)
	if total := len(out.TodaysCards) + len(out.ReviewedCards); total > out.KanjiCount {
		out.KanjiCount = total
	}
	out.Completed = out.ReviewedCount >= out.KanjiCount
	return out
}

// GrowCandidate 描述扩容时的候选卡片
type GrowCandidate struct {
	ID        uint
	Due       *time.Time
	CreatedAt time.Time
}

// Grow 向今日队列追加 addCount 张卡："要再学几张"的显式出口
// 候选排序：从未排期的优先，其次到期早的，再按创建时间；
// 候选不足时从已复习列表头部（最早完成的）回收，completed 重置为 false
func Grow(q DayQueue, candidates []GrowCandidate, addCount int) DayQueue {
	out := q.Clone()
	if addCount <= 0 {
		return Normalize(out)
	}

	present := make(map[uint]struct{}, len(out.TodaysCards)+len(out.ReviewedCards))
	for _, id := range out.TodaysCards {
		present[id] = struct{}{}
	}
	for _, id := range out.ReviewedCards {
		present[id] = struct{}{}
	}

	fresh := make([]GrowCandidate, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := present[c.ID]; dup {
			continue
		}
		fresh = append(fresh, c)
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		a, b := fresh[i], fresh[j]
		if (a.Due == nil) != (b.Due == nil) {
			return a.Due == nil
		}
		if a.Due != nil && b.Due != nil && !a.Due.Equal(*b.Due) {
			return a.Due.Before(*b.Due)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	added := 0
	for _, c := range fresh {
		if added >= addCount {
			break
		}
		out.TodaysCards = append(out.TodaysCards, c.ID)
		added++
	}

	// 新卡不够就回收已复习的
	for added < addCount && len(out.ReviewedCards) > 0 {
		recycled := out.ReviewedCards[0]
		out.ReviewedCards = out.ReviewedCards[1:]
		out.TodaysCards = append(out.TodaysCards, recycled)
		added++
	}

	out = Normalize(out)
	out.Completed = false
	return out
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []uint, id uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func dedupIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
