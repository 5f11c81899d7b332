package main

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/poiesic/gradebook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDataset(t *testing.T) {
	data := buildDataset(10, 4, rand.New(rand.NewPCG(1, 1)))

	assert.Len(t, data[gradebook.UsersCollection], 10)
	assert.Len(t, data[gradebook.CoursesCollection], 4)

	courseIDs := map[string]bool{}
	for _, rec := range data[gradebook.CoursesCollection] {
		courseIDs[rec.Doc.ID()] = true
	}
	enrollmentIDs := map[string]bool{}
	perUser := map[any]int{}
	for _, rec := range data[gradebook.EnrollmentsCollection] {
		enrollmentIDs[rec.Doc.ID()] = true
		assert.True(t, courseIDs[rec.Doc["courseId"].(string)])
		perUser[rec.Doc["userId"]]++
	}
	assert.Len(t, perUser, 10, "every user has an enrollment")
	for _, n := range perUser {
		assert.LessOrEqual(t, n, 3)
	}
	for _, rec := range data[gradebook.GradesCollection] {
		assert.True(t, enrollmentIDs[rec.Doc["enrollmentId"].(string)])
		score := rec.Doc["score"].(int)
		assert.GreaterOrEqual(t, score, 50)
		assert.LessOrEqual(t, score, 100)
	}
}

func TestBuildDataset_Deterministic(t *testing.T) {
	a := buildDataset(5, 3, rand.New(rand.NewPCG(7, 7)))
	b := buildDataset(5, 3, rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
}

func TestBuildDataset_NoCourses(t *testing.T) {
	data := buildDataset(3, 0, rand.New(rand.NewPCG(1, 1)))
	assert.Len(t, data[gradebook.UsersCollection], 3)
	assert.Empty(t, data[gradebook.EnrollmentsCollection])
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	db, err := gradebook.NewDatabase(nil)
	require.NoError(t, err)

	data := buildDataset(6, 3, rand.New(rand.NewPCG(2, 2)))
	require.NoError(t, seed(ctx, db, data))

	for collection, recs := range data {
		dao, ok := db.DAO(collection)
		require.True(t, ok)
		n, err := dao.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(len(recs)), n, collection)
	}

	children, err := db.Registry().FindChildren(ctx, gradebook.UsersCollection, "u001")
	require.NoError(t, err)
	assert.NotEmpty(t, children[gradebook.EnrollmentsCollection])
}
