package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natours/auth-api/internal/core/domain"
)

const resetBase = "http://localhost/api/v1/users/resetPassword"

func newPasswordFixture(t *testing.T) (*PasswordService, *stubUserRepo, *stubMailer, *domain.User) {
	t.Helper()
	repo := newStubUserRepo()
	mailer := &stubMailer{}
	jane := repo.seed("Jane", "jane@example.com", "pass1234", domain.RoleUser)
	return NewPasswordService(repo, mailer, 0, zerolog.Nop()), repo, mailer, jane
}

func rawTokenFrom(t *testing.T, url string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(url, resetBase+"/"), "unexpected reset url %q", url)
	return strings.TrimPrefix(url, resetBase+"/")
}

func TestPasswordService_RequestReset_StoresHashAndMailsRawToken(t *testing.T) {
	svc, repo, mailer, jane := newPasswordFixture(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.RequestReset(context.Background(), "JANE@example.com", resetBase+"/"))
	require.Len(t, mailer.resetURLs, 1)

	raw := rawTokenFrom(t, mailer.resetURLs[0])
	stored := repo.stored(jane.ID)
	assert.Equal(t, domain.HashResetToken(raw), stored.PasswordResetToken)
	assert.NotEqual(t, raw, stored.PasswordResetToken)
	require.NotNil(t, stored.PasswordResetExpires)
	assert.True(t, stored.PasswordResetExpires.Equal(now.Add(10*time.Minute)))
}

func TestPasswordService_RequestReset_UnknownEmail(t *testing.T) {
	svc, _, mailer, _ := newPasswordFixture(t)

	err := svc.RequestReset(context.Background(), "ghost@example.com", resetBase)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Equal(t, 404, domain.StatusCode(err))
	assert.Empty(t, mailer.resetURLs)
}

func TestPasswordService_RequestReset_DeliveryFailureRollsBack(t *testing.T) {
	svc, repo, mailer, jane := newPasswordFixture(t)
	mailer.err = errors.New("smtp down")

	err := svc.RequestReset(context.Background(), "jane@example.com", resetBase)
	require.ErrorIs(t, err, domain.ErrDeliveryFailed)
	assert.Equal(t, 500, domain.StatusCode(err))
	assert.Equal(t, msgDeliveryFailed, err.Error())

	stored := repo.stored(jane.ID)
	assert.Empty(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)

	_, err = svc.ConsumeReset(context.Background(), rawTokenFrom(t, mailer.resetURLs[0]), "newpass12", "newpass12")
	require.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
}

func TestPasswordService_ConsumeReset_Success(t *testing.T) {
	svc, repo, mailer, jane := newPasswordFixture(t)
	require.NoError(t, svc.RequestReset(context.Background(), "jane@example.com", resetBase))
	raw := rawTokenFrom(t, mailer.resetURLs[0])

	user, err := svc.ConsumeReset(context.Background(), raw, "newpass12", "newpass12")
	require.NoError(t, err)
	assert.Equal(t, jane.ID, user.ID)
	assert.True(t, user.CorrectPassword("newpass12"))
	assert.False(t, user.CorrectPassword("pass1234"))
	require.NotNil(t, user.PasswordChangedAt)

	stored := repo.stored(jane.ID)
	assert.Empty(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)

	_, err = svc.ConsumeReset(context.Background(), raw, "another12", "another12")
	require.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken, "reset token must be single-use")
}

func TestPasswordService_ConsumeReset_ConcurrentUseSucceedsOnce(t *testing.T) {
	svc, repo, mailer, jane := newPasswordFixture(t)
	require.NoError(t, svc.RequestReset(context.Background(), "jane@example.com", resetBase))
	raw := rawTokenFrom(t, mailer.resetURLs[0])

	// Hold both callers after the lookup so they race on the write.
	var arrived sync.WaitGroup
	arrived.Add(2)
	repo.afterFind = func() {
		arrived.Done()
		arrived.Wait()
	}

	passwords := []string{"first123", "second12"}
	errs := make([]error, len(passwords))
	var wg sync.WaitGroup
	for i, pw := range passwords {
		i, pw := i, pw
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.ConsumeReset(context.Background(), raw, pw, pw)
		}()
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	}
	assert.Equal(t, 1, won)

	stored := repo.stored(jane.ID)
	assert.Empty(t, stored.PasswordResetToken)
	assert.True(t, stored.CorrectPassword(passwords[0]) != stored.CorrectPassword(passwords[1]))
}

func TestPasswordService_ConsumeReset_Expired(t *testing.T) {
	svc, _, mailer, _ := newPasswordFixture(t)
	start := time.Now()
	svc.now = func() time.Time { return start }
	require.NoError(t, svc.RequestReset(context.Background(), "jane@example.com", resetBase))

	svc.now = func() time.Time { return start.Add(11 * time.Minute) }
	_, err := svc.ConsumeReset(context.Background(), rawTokenFrom(t, mailer.resetURLs[0]), "newpass12", "newpass12")
	require.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	assert.Equal(t, msgResetInvalid, err.Error())
	assert.Equal(t, 400, domain.StatusCode(err))
}

func TestPasswordService_ConsumeReset_BadPasswordKeepsToken(t *testing.T) {
	svc, repo, mailer, jane := newPasswordFixture(t)
	require.NoError(t, svc.RequestReset(context.Background(), "jane@example.com", resetBase))
	raw := rawTokenFrom(t, mailer.resetURLs[0])

	_, err := svc.ConsumeReset(context.Background(), raw, "newpass12", "different")
	require.ErrorIs(t, err, domain.ErrBadInput)
	assert.NotEmpty(t, repo.stored(jane.ID).PasswordResetToken)
}

func TestPasswordService_ConsumeReset_UnknownToken(t *testing.T) {
	svc, _, _, _ := newPasswordFixture(t)
	_, err := svc.ConsumeReset(context.Background(), "deadbeef", "newpass12", "newpass12")
	require.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
}

func TestPasswordService_UpdatePassword(t *testing.T) {
	svc, repo, _, jane := newPasswordFixture(t)

	user, err := svc.UpdatePassword(context.Background(), jane.ID, "pass1234", "newpass12", "newpass12")
	require.NoError(t, err)
	assert.True(t, user.CorrectPassword("newpass12"))
	assert.NotNil(t, repo.stored(jane.ID).PasswordChangedAt)
}

func TestPasswordService_UpdatePassword_WrongCurrent(t *testing.T) {
	svc, repo, _, jane := newPasswordFixture(t)

	_, err := svc.UpdatePassword(context.Background(), jane.ID, "wrongpass", "newpass12", "newpass12")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, msgCurrentWrong, err.Error())
	assert.Equal(t, 401, domain.StatusCode(err))
	assert.True(t, repo.stored(jane.ID).CorrectPassword("pass1234"))
}

func TestPasswordService_UpdatePassword_Mismatch(t *testing.T) {
	svc, _, _, jane := newPasswordFixture(t)
	_, err := svc.UpdatePassword(context.Background(), jane.ID, "pass1234", "newpass12", "newpass13")
	require.ErrorIs(t, err, domain.ErrBadInput)
}

func TestPasswordService_RequestReset_SaveFailure(t *testing.T) {
	svc, repo, mailer, _ := newPasswordFixture(t)
	repo.saveErr = errors.New("write conflict")

	err := svc.RequestReset(context.Background(), "jane@example.com", resetBase)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrDeliveryFailed))
	assert.Empty(t, mailer.resetURLs, "no email without a persisted token")
	assert.Zero(t, repo.saves)
}
