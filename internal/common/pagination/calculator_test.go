package pagination_test

import (
	"testing"

	"rfp-radar/internal/common/pagination"
)

func TestCalculateOffset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		page  int
		limit int
		want  int
	}{
		{"first page", 1, 20, 0},
		{"second page", 2, 20, 20},
		{"third page", 3, 20, 40},
		{"page 10 with limit 50", 10, 50, 450},
		{"page 1 with limit 1", 1, 1, 0},
		{"page 100 with limit 10", 100, 10, 990},
		{"large page number", 1000, 20, 19980},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pagination.CalculateOffset(tt.page, tt.limit)
			if got != tt.want {
				t.Errorf("CalculateOffset(%d, %d) = %d, want %d", tt.page, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCalculateTotalPages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		total int64
		limit int
		want  int
	}{
		{"zero total", 0, 20, 1},
		{"total less than limit", 10, 20, 1},
		{"total equals limit", 20, 20, 1},
		{"total one more than limit", 21, 20, 2},
		{"total exactly 2 pages", 40, 20, 2},
		{"total 2 pages plus 1", 41, 20, 3},
		{"total 150 with limit 20", 150, 20, 8},
		{"total 151 with limit 20", 151, 20, 8},
		{"total 159 with limit 20", 159, 20, 8},
		{"total 160 with limit 20", 160, 20, 8},
		{"total 161 with limit 20", 161, 20, 9},
		{"large total", 10000, 100, 100},
		{"large total with small limit", 9999, 10, 1000},
		{"limit 1", 5, 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pagination.CalculateTotalPages(tt.total, tt.limit)
			if got != tt.want {
				t.Errorf("CalculateTotalPages(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
			}
		})
	}
}

func BenchmarkCalculateOffset(b *testing.B) {
	for i := 0; i < b.N; i++ {
		pagination.CalculateOffset(100, 20)
	}
}

func BenchmarkCalculateTotalPages(b *testing.B) {
	for i := 0; i < b.N; i++ {
		pagination.CalculateTotalPages(10000, 20)
	}
}
