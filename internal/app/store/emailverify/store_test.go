package emailverify_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/learnhub/internal/app/store/emailverify"
	"github.com/dalemusser/learnhub/internal/app/system/indexes"
	"github.com/dalemusser/learnhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestNew_Expiry(t *testing.T) {
	db := testutil.SetupTestDB(t)

	if got := emailverify.New(db, 0).Expiry(); got != emailverify.DefaultExpiry {
		t.Errorf("zero expiry = %v, want default", got)
	}
	if got := emailverify.New(db, -time.Minute).Expiry(); got != emailverify.DefaultExpiry {
		t.Errorf("negative expiry = %v, want default", got)
	}
	if got := emailverify.New(db, 30*time.Minute).Expiry(); got != 30*time.Minute {
		t.Errorf("custom expiry = %v", got)
	}
}

func TestStore_CreateAndVerify(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := emailverify.New(db, emailverify.DefaultExpiry)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	userID := primitive.NewObjectID()
	issued, err := store.Create(ctx, userID, "a@example.com", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(issued.Code) != emailverify.CodeLength {
		t.Fatalf("code %q has wrong length", issued.Code)
	}

	wrong := "000000"
	if issued.Code == wrong {
		wrong = "111111"
	}
	if _, err := store.VerifyCode(ctx, userID, wrong); !errors.Is(err, emailverify.ErrInvalidCode) {
		t.Errorf("wrong code err = %v", err)
	}

	v, err := store.VerifyCode(ctx, userID, issued.Code)
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if v.Email != "a@example.com" {
		t.Errorf("email = %q", v.Email)
	}
	if _, err := store.VerifyCode(ctx, userID, issued.Code); !errors.Is(err, emailverify.ErrNotFound) {
		t.Errorf("reuse err = %v, want ErrNotFound", err)
	}
}

func TestStore_CreateReplacesPrevious(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := emailverify.New(db, emailverify.DefaultExpiry)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	first, _ := store.Create(ctx, userID, "a@example.com", false)
	second, err := store.Create(ctx, userID, "a@example.com", false)
	if err != nil {
		t.Fatal(err)
	}
	if first.Code != second.Code {
		if _, err := store.VerifyCode(ctx, userID, first.Code); !errors.Is(err, emailverify.ErrInvalidCode) {
			t.Errorf("old code err = %v, want ErrInvalidCode", err)
		}
	}
	if _, err := store.VerifyCode(ctx, userID, second.Code); err != nil {
		t.Errorf("new code: %v", err)
	}
}

func TestStore_TooManyAttempts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := emailverify.New(db, emailverify.DefaultExpiry)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	issued, _ := store.Create(ctx, userID, "a@example.com", false)
	wrong := "000000"
	if issued.Code == wrong {
		wrong = "111111"
	}
	for i := 0; i < emailverify.MaxVerifyAttempts; i++ {
		_, _ = store.VerifyCode(ctx, userID, wrong)
	}
	if _, err := store.VerifyCode(ctx, userID, issued.Code); !errors.Is(err, emailverify.ErrTooManyAttempts) {
		t.Errorf("err = %v, want ErrTooManyAttempts", err)
	}
}

func TestStore_ResendLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := emailverify.New(db, emailverify.DefaultExpiry)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	if _, err := store.Create(ctx, userID, "a@example.com", false); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= emailverify.MaxResends; i++ {
		issued, err := store.Create(ctx, userID, "a@example.com", true)
		if err != nil {
			t.Fatalf("resend %d: %v", i, err)
		}
		if issued.ResendCount != i {
			t.Errorf("resend count = %d, want %d", issued.ResendCount, i)
		}
	}
	if _, err := store.Create(ctx, userID, "a@example.com", true); !errors.Is(err, emailverify.ErrTooManyResends) {
		t.Errorf("err = %v, want ErrTooManyResends", err)
	}
}

func TestStore_DeleteByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := emailverify.New(db, emailverify.DefaultExpiry)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	issued, _ := store.Create(ctx, userID, "a@example.com", false)
	if err := store.DeleteByUser(ctx, userID); err != nil {
		t.Fatalf("DeleteByUser: %v", err)
	}
	if _, err := store.VerifyCode(ctx, userID, issued.Code); !errors.Is(err, emailverify.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
