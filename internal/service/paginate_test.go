package service

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/sitegallery/internal/domain"
)

func makeRecords(n int) []*domain.ImageRecord {
	out := make([]*domain.ImageRecord, n)
	for i := range out {
		out[i] = &domain.ImageRecord{ID: strconv.Itoa(i)}
	}
	return out
}

func ids(records []*domain.ImageRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		page, limit int
		wantIDs     []string
		wantPage    int
		wantLimit   int
		wantPages   int
	}{
		{"first page", 25, 1, 10, []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, 1, 10, 3},
		{"remainder page", 25, 3, 10, []string{"20", "21", "22", "23", "24"}, 3, 10, 3},
		{"past the end", 25, 4, 10, []string{}, 4, 10, 3},
		{"defaults", 3, 0, 0, []string{"0", "1", "2"}, 1, 20, 1},
		{"negative falls back", 3, -2, -5, []string{"0", "1", "2"}, 1, 20, 1},
		{"limit capped", 150, 1, 500, nil, 1, 100, 2},
		{"empty store", 0, 1, 20, []string{}, 1, 20, 0},
		{"exact multiple", 20, 2, 10, []string{"10", "11", "12", "13", "14", "15", "16", "17", "18", "19"}, 2, 10, 2},
		{"huge page", 5, math.MaxInt, 20, []string{}, math.MaxInt, 20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(makeRecords(tt.total), tt.page, tt.limit)
			require.NotNil(t, got.Images)
			if tt.wantIDs != nil {
				assert.Equal(t, tt.wantIDs, ids(got.Images))
			}
			assert.Equal(t, tt.wantPage, got.Pagination.CurrentPage)
			assert.Equal(t, tt.wantLimit, got.Pagination.Limit)
			assert.Equal(t, tt.wantPages, got.Pagination.TotalPages)
			assert.Equal(t, tt.total, got.Pagination.TotalImages)
		})
	}
}

func TestPaginateCapsPageSize(t *testing.T) {
	got := Paginate(makeRecords(150), 1, 500)
	assert.Len(t, got.Images, MaxLimit)
}

// Walking every page visits each record exactly once, in order.
func TestPaginatePagesCoverAllRecords(t *testing.T) {
	for _, total := range []int{0, 1, 19, 20, 21, 57} {
		for _, limit := range []int{1, 7, 20} {
			records := makeRecords(total)
			first := Paginate(records, 1, limit)

			var seen []string
			for p := 1; p <= first.Pagination.TotalPages; p++ {
				seen = append(seen, ids(Paginate(records, p, limit).Images)...)
			}
			assert.Equal(t, ids(records), append([]string{}, seen...), "total=%d limit=%d", total, limit)
		}
	}
}

func TestPaginateDoesNotAliasInput(t *testing.T) {
	records := makeRecords(3)
	got := Paginate(records, 1, 20)
	got.Images[0] = nil
	assert.NotNil(t, records[0])
}
