package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollWinner_TieGoesToEarliestOption(t *testing.T) {
	p := Poll{Options: []TripOption{
		{PlaceID: "a", Votes: 2},
		{PlaceID: "b", Votes: 3},
		{PlaceID: "c", Votes: 3},
	}}

	w, ok := p.Winner()
	require.True(t, ok)
	assert.Equal(t, "b", w.PlaceID)
}

func TestPollWinner_NoVotesPicksFirst(t *testing.T) {
	p := Poll{Options: []TripOption{{PlaceID: "a"}, {PlaceID: "b"}}}

	w, ok := p.Winner()
	require.True(t, ok)
	assert.Equal(t, "a", w.PlaceID)

	_, ok = (&Poll{}).Winner()
	assert.False(t, ok)
}

func TestPollClone_DoesNotAlias(t *testing.T) {
	p := &Poll{ID: "s1", Options: []TripOption{{PlaceID: "a"}}, Voters: []string{"u1"}}
	c := p.Clone()

	c.Options[0].Votes++
	c.Voters = append(c.Voters, "u2")

	assert.Equal(t, 0, p.Options[0].Votes)
	assert.Equal(t, []string{"u1"}, p.Voters)
	assert.True(t, c.HasVoted("u2"))
	assert.Equal(t, 0, c.OptionIndex("a"))
	assert.Equal(t, -1, c.OptionIndex("zzz"))
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, ok := ParseCategory(string(c))
		assert.True(t, ok, c)
		assert.Equal(t, c, got)
	}

	_, ok := ParseCategory("Nightclub")
	assert.False(t, ok)
	_, ok = ParseCategory("")
	assert.False(t, ok)
}

func TestCategoryVenueType(t *testing.T) {
	assert.Equal(t, "restaurant", CategoryFood.VenueType())
	assert.Equal(t, "bar", CategoryDrinks.VenueType())
	assert.Equal(t, "cafe", CategoryCoffeeTea.VenueType())
	assert.Equal(t, "bakery", CategoryDessert.VenueType())
	assert.Equal(t, "tourist_attraction", CategoryScenicSpot.VenueType())
	assert.Equal(t, "point_of_interest", CategoryNoPreference.VenueType())
}
