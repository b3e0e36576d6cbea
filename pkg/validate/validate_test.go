package validate_test

import (
	"testing"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/validate"
)

func TestValidRegistration(t *testing.T) {
	errs := validate.Struct(models.RegisterInput{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "secret123",
		Role:     models.RoleFarmer,
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(models.RegisterInput{})
	if !validate.HasErrors(errs) {
		t.Fatal("expected required errors")
	}
	for _, f := range []string{"name", "email", "password", "role"} {
		if _, ok := errs[f]; !ok {
			t.Errorf("expected %s to be required", f)
		}
	}
}

func TestAdminCannotSelfRegister(t *testing.T) {
	errs := validate.Struct(models.RegisterInput{
		Name: "Root", Email: "root@example.com", Password: "secret123", Role: models.RoleAdmin,
	})
	if _, ok := errs["role"]; !ok {
		t.Errorf("expected role error, got: %v", errs)
	}
}

func TestEmailRule(t *testing.T) {
	errs := validate.Struct(models.Credentials{Email: "not-an-email", Password: "x"})
	if _, ok := errs["email"]; !ok {
		t.Error("expected email validation error")
	}
}

func TestProductInput(t *testing.T) {
	in := models.ProductInput{Name: "Tomatoes", Description: "Organic", Price: 20, Quantity: 5}
	if err := validate.Check(in); err != nil {
		t.Errorf("expected valid product, got: %v", err)
	}

	in.Price = -1
	in.ImageURL = "ftp://nope"
	errs := validate.Struct(in)
	if _, ok := errs["price"]; !ok {
		t.Error("expected price > 0 error")
	}
	if _, ok := errs["imageUrl"]; !ok {
		t.Error("expected imageUrl error")
	}
}

func TestNullableSkipsEmpty(t *testing.T) {
	in := models.ProductInput{Name: "Rice", Description: "Basmati", Price: 60, Quantity: 10, ImageURL: ""}
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		t.Errorf("expected empty image url to pass, got: %v", errs)
	}
}

func TestReviewRatingBounds(t *testing.T) {
	for _, rating := range []int{0, 6} {
		errs := validate.Struct(models.ReviewInput{Rating: rating, Comment: "ok"})
		if _, ok := errs["rating"]; !ok {
			t.Errorf("expected rating %d to fail", rating)
		}
	}
	if err := validate.Check(models.ReviewInput{Rating: 5, Comment: "great"}); err != nil {
		t.Errorf("expected rating 5 to pass, got %v", err)
	}
}

func TestErrorsMessageIsStable(t *testing.T) {
	err := validate.Check(models.Credentials{})
	if err == nil {
		t.Fatal("expected error")
	}
	want := "The email field is required. The password field is required."
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
