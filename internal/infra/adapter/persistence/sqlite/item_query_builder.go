package sqlite

import (
	"strings"

	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

// Ranking and predicate construction for ItemRepo.List. Everything is
// composed from ? placeholders; no user input is ever concatenated into
// the SQL text.

const defaultListLimit = 50

// sortTS is the composite timestamp used for recency ordering and for
// keyset pagination. Items without a publication date fall back to
// their fetch time.
const sortTS = `COALESCE(items.published_at, items.fetched_at)`

// breakingActiveExpr is 0 when the breaking flag is active at the
// evaluation instant, 1 otherwise. Active rows sort first.
const breakingActiveExpr = `CASE WHEN items.is_breaking = 1
	AND (items.breaking_expires_at IS NULL OR items.breaking_expires_at > ?)
	THEN 0 ELSE 1 END`

// paywallTierExpr ranks free (0) before paywalled (1) before
// deprioritized paywalled duplicates (2).
const paywallTierExpr = `CASE
	WHEN items.paywall_deprioritized = 1 THEN 2
	WHEN items.is_paywalled = 1 THEN 1
	ELSE 0 END`

// bingOnlyExpr is 1 when every feed referencing the item is a bing
// fallback, so curated sources always outrank the safety net.
const bingOnlyExpr = `CASE WHEN EXISTS (
	SELECT 1 FROM feed_items fi
	JOIN feeds f ON f.id = fi.feed_id
	WHERE fi.item_id = items.id AND f.is_bing_fallback = 0
) THEN 0 ELSE 1 END`

// buildItemQuery renders an ItemQuery into SQL and its argument list.
func buildItemQuery(q repository.ItemQuery) (string, []interface{}) {
	var sb strings.Builder
	args := make([]interface{}, 0, 16)

	sb.WriteString("SELECT ")
	sb.WriteString(itemColumns)
	sb.WriteString("\nFROM items\nWHERE 1=1")

	// 短すぎる記事はランキングから除外する
	sb.WriteString(`
AND NOT EXISTS (
	SELECT 1 FROM ingestion_queue iq
	WHERE iq.item_id = items.id AND iq.status = 'rejected_short'
)`)

	if !q.IncludeDuplicates {
		sb.WriteString("\nAND items.is_duplicate = 0")
	}
	if !q.IncludePaywalled {
		sb.WriteString("\nAND items.is_paywalled = 0")
	}

	if q.Scope != "" {
		sb.WriteString("\nAND items.region_scope = ?")
		args = append(args, q.Scope)
	}

	if len(q.Categories) > 0 {
		sb.WriteString("\nAND EXISTS (SELECT 1 FROM item_categories ic WHERE ic.item_id = items.id AND ic.category IN (")
		sb.WriteString(placeholders(len(q.Categories)))
		sb.WriteString("))")
		for _, c := range q.Categories {
			args = append(args, c)
		}
	}

	if len(q.Counties) > 0 || q.StateCode != "" {
		sb.WriteString("\nAND EXISTS (SELECT 1 FROM item_locations il WHERE il.item_id = items.id")
		if q.StateCode != "" {
			sb.WriteString(" AND il.state_code = ?")
			args = append(args, q.StateCode)
		}
		if len(q.Counties) > 0 {
			sb.WriteString(" AND il.county IN (")
			sb.WriteString(placeholders(len(q.Counties)))
			sb.WriteString(")")
			for _, c := range q.Counties {
				args = append(args, c)
			}
		}
		sb.WriteString(")")
	}

	if q.Breaking {
		sb.WriteString("\nAND items.is_breaking = 1 AND (items.breaking_expires_at IS NULL OR items.breaking_expires_at > ?)")
		args = append(args, q.Now)
	}

	if q.Since != nil {
		sb.WriteString("\nAND " + sortTS + " >= ?")
		args = append(args, *q.Since)
	}

	// Keyset cursor on the recency keys only. The upper ranking keys
	// (breaking, paywall tier, bing) can flip between pages as
	// enrichment progresses, so paging strictly by time keeps the
	// cursor stable at the cost of re-sorting within the page.
	if q.CursorSortTS != nil && q.CursorItemID != "" {
		sb.WriteString("\nAND (" + sortTS + " < ? OR (" + sortTS + " = ? AND items.id < ?))")
		args = append(args, *q.CursorSortTS, *q.CursorSortTS, q.CursorItemID)
	}

	sb.WriteString("\nORDER BY\n\t" + breakingActiveExpr + " ASC,")
	args = append(args, q.Now)
	sb.WriteString("\n\t" + paywallTierExpr + " ASC,")
	sb.WriteString("\n\t" + bingOnlyExpr + " ASC,")
	// published_at DESC, NULLs last (SQLite has no NULLS LAST)
	sb.WriteString("\n\tCASE WHEN items.published_at IS NULL THEN 1 ELSE 0 END ASC,")
	sb.WriteString("\n\titems.published_at DESC,")
	sb.WriteString("\n\titems.fetched_at DESC,")
	sb.WriteString("\n\titems.id DESC")

	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	sb.WriteString("\nLIMIT ?")
	args = append(args, limit)

	return sb.String(), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
