//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/domain/enums"
	"github.com/valentina-app/backend/internal/domain/model"
)

func TestMatchInsertRejectsDuplicatePairInEitherOrder(t *testing.T) {
	pool := startPostgresForTest(t)
	ctx := context.Background()
	profiles := NewProfileRepo(pool)
	matches := NewMatchRepo(pool)

	male := createProfile(t, profiles, enums.GenderMale, true, time.Now().UTC())
	female := createProfile(t, profiles, enums.GenderFemale, true, time.Now().UTC())

	if _, err := matches.Insert(ctx, model.Match{
		ID:           uuid.NewString(),
		MaleUserID:   male.UserID,
		FemaleUserID: female.UserID,
		MatchedAt:    time.Now().UTC(),
	}); err != nil {
		t.Fatalf("insert first match: %v", err)
	}

	_, err := matches.Insert(ctx, model.Match{
		ID:           uuid.NewString(),
		MaleUserID:   female.UserID,
		FemaleUserID: male.UserID,
		MatchedAt:    time.Now().UTC(),
	})
	if !errors.Is(err, ErrMatchPairExists) {
		t.Fatalf("expected ErrMatchPairExists, got %v", err)
	}
}

func TestVIPCodeOneUnusedPerUserAndConditionalRedeem(t *testing.T) {
	pool := startPostgresForTest(t)
	ctx := context.Background()
	profiles := NewProfileRepo(pool)
	codes := NewVIPCodeRepo(pool)

	owner := createProfile(t, profiles, enums.GenderFemale, true, time.Now().UTC())
	other := createProfile(t, profiles, enums.GenderMale, true, time.Now().UTC())

	first := insertCode(t, codes, owner.UserID, "VIP-AAAA1111")

	_, err := codes.Insert(ctx, model.VIPCode{
		ID:             uuid.NewString(),
		Code:           "VIP-BBBB2222",
		AssignedUserID: owner.UserID,
		CreatedAt:      time.Now().UTC(),
	})
	if !errors.Is(err, ErrUnusedCodeExists) {
		t.Fatalf("expected ErrUnusedCodeExists, got %v", err)
	}

	_, err = codes.Insert(ctx, model.VIPCode{
		ID:             uuid.NewString(),
		Code:           first.Code,
		AssignedUserID: other.UserID,
		CreatedAt:      time.Now().UTC(),
	})
	if !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken for duplicate value, got %v", err)
	}

	if _, err := codes.Redeem(ctx, first.Code, other.UserID, time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("redeem by a different user must fail, got %v", err)
	}

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := codes.Redeem(ctx, first.Code, owner.UserID, time.Now().UTC()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful redeem, got %d", wins)
	}

	insertCode(t, codes, owner.UserID, "VIP-CCCC3333")
}

func TestInsertInstantForUserPicksOldestUnmatchedPaidCandidate(t *testing.T) {
	pool := startPostgresForTest(t)
	ctx := context.Background()
	profiles := NewProfileRepo(pool)
	matches := NewMatchRepo(pool)

	base := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	requester := createProfile(t, profiles, enums.GenderMale, true, base)
	taken := createProfile(t, profiles, enums.GenderFemale, true, base.Add(time.Minute))
	unpaid := createProfile(t, profiles, enums.GenderFemale, false, base.Add(2*time.Minute))
	want := createProfile(t, profiles, enums.GenderFemale, true, base.Add(3*time.Minute))
	createProfile(t, profiles, enums.GenderFemale, true, base.Add(4*time.Minute))
	rival := createProfile(t, profiles, enums.GenderMale, true, base)

	if _, err := matches.Insert(ctx, model.Match{
		ID:           uuid.NewString(),
		MaleUserID:   rival.UserID,
		FemaleUserID: taken.UserID,
		MatchedAt:    base,
	}); err != nil {
		t.Fatalf("seed existing match: %v", err)
	}

	got, err := matches.InsertInstantForUser(ctx, uuid.NewString(), requester.UserID, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("instant match: %v", err)
	}
	if got.FemaleUserID != want.UserID || got.MaleUserID != requester.UserID {
		t.Fatalf("unexpected instant match %+v (unpaid=%s want=%s)", got, unpaid.UserID, want.UserID)
	}
	if !got.IsInstantMatch {
		t.Fatalf("instant match flag not set")
	}

	if _, err := matches.InsertInstantForUser(ctx, uuid.NewString(), requester.UserID, base.Add(time.Hour)); !errors.Is(err, ErrAlreadyMatched) {
		t.Fatalf("expected ErrAlreadyMatched, got %v", err)
	}

	lonely := createProfile(t, profiles, enums.GenderFemale, true, base)
	if _, err := matches.InsertInstantForUser(ctx, uuid.NewString(), lonely.UserID, base.Add(time.Hour)); !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("expected ErrNoCandidate once every male is matched, got %v", err)
	}
}

func TestClaimRevealBatchClaimsEachRegularMatchOnce(t *testing.T) {
	pool := startPostgresForTest(t)
	ctx := context.Background()
	profiles := NewProfileRepo(pool)
	matches := NewMatchRepo(pool)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		m := createProfile(t, profiles, enums.GenderMale, true, now)
		f := createProfile(t, profiles, enums.GenderFemale, true, now)
		if _, err := matches.Insert(ctx, model.Match{
			ID:             uuid.NewString(),
			MaleUserID:     m.UserID,
			FemaleUserID:   f.UserID,
			IsInstantMatch: i == 2,
			MatchedAt:      now.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("insert match %d: %v", i, err)
		}
	}

	first, err := matches.ClaimRevealBatch(ctx, 1, now)
	if err != nil {
		t.Fatalf("claim first batch: %v", err)
	}
	second, err := matches.ClaimRevealBatch(ctx, 10, now)
	if err != nil {
		t.Fatalf("claim second batch: %v", err)
	}
	third, err := matches.ClaimRevealBatch(ctx, 10, now)
	if err != nil {
		t.Fatalf("claim third batch: %v", err)
	}

	if len(first) != 1 || len(second) != 1 || len(third) != 0 {
		t.Fatalf("unexpected batch sizes: %d/%d/%d", len(first), len(second), len(third))
	}
	if first[0].ID == second[0].ID {
		t.Fatalf("match %s claimed twice", first[0].ID)
	}
	for _, m := range append(first, second...) {
		if m.IsInstantMatch || m.NotifiedAt == nil {
			t.Fatalf("unexpected claimed match %+v", m)
		}
	}
}

func TestClaimRevealBatchSkipsMatchesAnnouncedOnInsert(t *testing.T) {
	pool := startPostgresForTest(t)
	ctx := context.Background()
	profiles := NewProfileRepo(pool)
	matches := NewMatchRepo(pool)

	now := time.Now().UTC()
	m := createProfile(t, profiles, enums.GenderMale, true, now)
	f := createProfile(t, profiles, enums.GenderFemale, true, now)
	created, err := matches.Insert(ctx, model.Match{
		ID:           uuid.NewString(),
		MaleUserID:   m.UserID,
		FemaleUserID: f.UserID,
		MatchedAt:    now,
		NotifiedAt:   &now,
	})
	if err != nil {
		t.Fatalf("insert announced match: %v", err)
	}
	if created.NotifiedAt == nil {
		t.Fatalf("notified_at was not stored")
	}

	claimed, err := matches.ClaimRevealBatch(ctx, 10, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("claim batch: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("announced match must not be claimed again, got %+v", claimed)
	}
}

func TestTxManagerRollsBackOnError(t *testing.T) {
	pool := startPostgresForTest(t)
	ctx := context.Background()
	profiles := NewProfileRepo(pool)
	codes := NewVIPCodeRepo(pool)
	tx := NewTxManager(pool)

	owner := createProfile(t, profiles, enums.GenderMale, true, time.Now().UTC())
	boom := errors.New("boom")

	err := tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := codes.Insert(ctx, model.VIPCode{
			ID:             uuid.NewString(),
			Code:           "VIP-ROLLBACK",
			AssignedUserID: owner.UserID,
			CreatedAt:      time.Now().UTC(),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	exists, err := codes.CodeExists(ctx, "VIP-ROLLBACK")
	if err != nil {
		t.Fatalf("code exists: %v", err)
	}
	if exists {
		t.Fatalf("code must not survive a rolled back transaction")
	}
}

func createProfile(t *testing.T, repo *ProfileRepo, gender enums.Gender, paid bool, createdAt time.Time) model.Profile {
	t.Helper()
	ctx := context.Background()

	id := uuid.NewString()
	p, err := repo.Create(ctx, model.Profile{
		UserID:       id,
		Name:         "user " + id[:8],
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: "hash",
		Gender:       gender,
		CreatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if paid {
		if _, err := repo.MarkPaid(ctx, id, "ref-"+id, 200000, "NGN", createdAt); err != nil {
			t.Fatalf("mark paid: %v", err)
		}
		p.PaymentStatus = true
	}
	return p
}

func insertCode(t *testing.T, repo *VIPCodeRepo, userID, code string) model.VIPCode {
	t.Helper()
	c, err := repo.Insert(context.Background(), model.VIPCode{
		ID:             uuid.NewString(),
		Code:           code,
		AssignedUserID: userID,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert vip code %s: %v", code, err)
	}
	return c
}

func startPostgresForTest(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "valentina_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping test because docker/testcontainers is unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/valentina_test?sslmode=disable", host, port.Port())
	deadline := time.Now().Add(30 * time.Second)
	var pool *pgxpool.Pool
	for {
		pool, err = NewPool(ctx, dsn, 10)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("postgres did not become ready: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(pool, zap.NewNop()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}
