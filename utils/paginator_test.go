package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yatube/yatube/models"
)

func TestNumPages(t *testing.T) {
	assert.Equal(t, 1, NumPages(0, 10))
	assert.Equal(t, 1, NumPages(10, 10))
	assert.Equal(t, 2, NumPages(11, 10))
	assert.Equal(t, 2, NumPages(13, 10))
	assert.Equal(t, 1, NumPages(5, 0))
}

func TestResolvePage(t *testing.T) {
	cases := map[string]int{
		"":    1,
		"1":   1,
		"2":   2,
		" 2 ": 2,
		"3":   3,
		"99":  3,
		"0":   1,
		"-4":  1,
		"abc": 1,
		"2.5": 1,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ResolvePage(raw, 3), "page=%q", raw)
	}
}

func TestPaginate(t *testing.T) {
	db := newTestDB(t)
	author := models.User{Username: "author"}
	require.NoError(t, db.Create(&author).Error)
	for i := 0; i < 13; i++ {
		require.NoError(t, db.Create(&models.Post{AuthorID: author.ID, Text: fmt.Sprintf("post %d", i)}).Error)
	}
	q := db.Model(&models.Post{}).Order("id DESC")

	first, err := Paginate[models.Post](q, "", 10, "Author")
	require.NoError(t, err)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, 2, first.NumPages)
	assert.Equal(t, int64(13), first.Count)
	assert.True(t, first.HasNext())
	assert.False(t, first.HasPrevious())
	assert.Equal(t, "post 12", first.Items[0].Text)
	assert.Equal(t, "author", first.Items[0].Author.Username)

	second, err := Paginate[models.Post](q, "2", 10)
	require.NoError(t, err)
	assert.Len(t, second.Items, 3)
	assert.True(t, second.HasPrevious())
	assert.Equal(t, 1, second.PreviousNumber())
	assert.Equal(t, []int{1, 2}, second.PageRange())

	empty, err := Paginate[models.Post](q.Where("text = ?", "nothing"), "5", 10)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 1, empty.Number)
	assert.False(t, empty.HasOtherPages())
}
