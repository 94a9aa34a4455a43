package mongorepos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/evaluation"
	"github.com/trezcool/ies/core/user"
	"github.com/trezcool/ies/storage/database"
	"github.com/trezcool/ies/testutil"
)

// openTestDB connects to TEST_DATABASE_URI and drops the test database before & after the test.
func openTestDB(t *testing.T) *database.DB {
	uri := os.Getenv("TEST_DATABASE_URI")
	if uri == "" {
		t.Skip("TEST_DATABASE_URI not set")
	}
	conf := core.NewTestConfig()
	conf.Database.URI = uri

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, conf)
	require.NoError(t, err)
	require.NoError(t, db.Drop(ctx))
	require.NoError(t, db.EnsureIndexes(ctx))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = db.Close(ctx)
	})
	return db
}

func TestUserRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	ann := testutil.CreateUser(t, repo, "Ann", "ann@student.buksu.edu.ph", "Pa$$w0rd!", user.RoleStudent, true)
	bob := testutil.CreateUser(t, repo, "Bob", "bob@buksu.edu.ph", "", user.RoleFaculty, false)

	_, err := repo.CreateUser(ctx, user.User{Name: "Ann 2", Email: ann.Email, Role: user.RoleStudent})
	assert.Equal(t, user.ErrEmailExists, errors.Cause(err))
	assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, ann.Email))
	assert.NoError(t, repo.CheckEmailUniqueness(ctx, ann.Email, ann))

	got, err := repo.GetUser(ctx, user.GetFilter{ID: ann.ID})
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("Pa$$w0rd!"))

	_, err = repo.GetUser(ctx, user.GetFilter{ID: "not-an-object-id"})
	assert.Equal(t, user.ErrNotFound, err)

	active := true
	users, err := repo.QueryUsers(ctx, &user.QueryFilter{IsActive: &active}, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, ann.ID, users[0].ID)

	users, err = repo.QueryUsers(ctx, &user.QueryFilter{Search: "BOB"}, []core.DBOrdering{{Field: "name", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, bob.ID, users[0].ID)

	bob.GoogleID = "g-123"
	_, err = repo.UpdateUser(ctx, bob)
	require.NoError(t, err)
	got, err = repo.GetUser(ctx, user.GetFilter{GoogleID: "g-123"})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	require.NoError(t, repo.DeleteUsersByID(ctx, ann.ID, bob.ID))
	users, err = repo.GetUsersByID(ctx, ann.ID, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestEvaluationRepositories(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	usrRepo := NewUserRepository(db)
	formRepo := NewFormRepository(db)
	respRepo := NewResponseRepository(db)

	faculty := testutil.CreateUser(t, usrRepo, "Prof", "prof@buksu.edu.ph", "", user.RoleFaculty, true)
	student := testutil.CreateUser(t, usrRepo, "Stu", "stu@student.buksu.edu.ph", "", user.RoleStudent, true)
	form := testutil.CreateForm(t, formRepo, "Midterm", faculty, []evaluation.Question{
		{Text: "Clarity"},
		{Text: "Comments", Type: evaluation.QuestionText},
	})

	got, err := formRepo.GetForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, form.Questions, got.Questions)

	now := time.Now().UTC().Truncate(time.Millisecond)
	newResponse := func(qID string) evaluation.Response {
		return evaluation.Response{
			FormID:       form.ID,
			InstructorID: faculty.ID,
			StudentID:    student.ID,
			QuestionID:   qID,
			Rating:       testutil.IntPtr(4),
			Period:       form.Period,
			CreatedAt:    now,
		}
	}

	created, err := respRepo.CreateResponses(ctx, newResponse("q1"))
	require.NoError(t, err)
	require.Len(t, created, 1)

	// the unique index closes the gap left by the existence check
	_, err = respRepo.CreateResponses(ctx, newResponse("q1"))
	assert.Equal(t, evaluation.ErrDuplicateSubmission, err)

	exists, err := respRepo.ResponseExists(ctx, form.ID, student.ID, "q1")
	require.NoError(t, err)
	assert.True(t, exists)

	bad := newResponse("q2")
	bad.InstructorID = "no-such-instructor"
	_, err = respRepo.CreateResponses(ctx, bad)
	assert.Equal(t, errInvalidID, errors.Cause(err))

	exists, err = respRepo.ResponseExists(ctx, "nope", student.ID, "q1")
	require.NoError(t, err)
	assert.False(t, exists)

	responses, err := respRepo.QueryResponses(ctx, evaluation.ResponseFilter{
		CreatedFrom: now.Add(-time.Minute),
		CreatedTo:   now.Add(time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, form.Period, responses[0].Period)

	err = db.WithTransaction(ctx, func(ctx context.Context) error {
		n, err := respRepo.DeleteResponsesByForm(ctx, form.ID)
		assert.EqualValues(t, 1, n)
		if err != nil {
			return err
		}
		return formRepo.DeleteForm(ctx, form.ID)
	})
	require.NoError(t, err)

	_, err = formRepo.GetForm(ctx, form.ID)
	assert.Equal(t, evaluation.ErrFormNotFound, err)
}
