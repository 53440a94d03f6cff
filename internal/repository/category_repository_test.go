package repository

import (
	"context"
	"testing"
	"time"

	"intranet_admin/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockCategoryRepo(t *testing.T) (CategoryRepository, sqlmock.Sqlmock) {
	t.Helper()
	gdb, mock := newMockDB(t)
	return NewCategoryRepository(gdb), mock
}

func TestCategoryRepository_FindAll(t *testing.T) {
	repo, mock := newMockCategoryRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM `categories` ORDER BY created_at ASC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at"}).
			AddRow("c1", "Alimentación", "alimentaci-n", now))
	mock.ExpectQuery("SELECT .* FROM `subcategories` ORDER BY created_at ASC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "name", "slug", "created_at"}).
			AddRow("s1", "c1", "Bebidas", "bebidas", now))
	mock.ExpectQuery("SELECT .* FROM `level3_categories` ORDER BY created_at ASC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subcategory_id", "name", "slug", "created_at"}))

	rows, err := repo.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll() error: %v", err)
	}
	if len(rows.Categories) != 1 || len(rows.Subcategories) != 1 || len(rows.Level3) != 0 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows.Subcategories[0].CategoryID != "c1" {
		t.Fatalf("unexpected parent: %q", rows.Subcategories[0].CategoryID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCategoryRepository_CreateSubcategory(t *testing.T) {
	repo, mock := newMockCategoryRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `subcategories`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.CreateSubcategory(context.Background(), &model.Subcategory{ID: "s1", CategoryID: "c1", Name: "Bebidas", Slug: "bebidas"})
	if err != nil {
		t.Fatalf("CreateSubcategory() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCategoryRepository_Create_MissingIDs(t *testing.T) {
	repo, _ := newMockCategoryRepo(t)
	ctx := context.Background()

	if err := repo.CreateCategory(ctx, &model.Category{Name: "x"}); err == nil {
		t.Fatal("expected error for missing category id")
	}
	if err := repo.CreateSubcategory(ctx, &model.Subcategory{ID: "s1"}); err == nil {
		t.Fatal("expected error for missing parent id")
	}
	if err := repo.CreateLevel3(ctx, nil); err == nil {
		t.Fatal("expected error for nil level3")
	}
}

func TestCategoryRepository_DeleteCategory_Cascades(t *testing.T) {
	repo, mock := newMockCategoryRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT `id` FROM `subcategories` WHERE category_id = \\?").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1").AddRow("s2"))
	mock.ExpectExec("DELETE FROM `level3_categories` WHERE subcategory_id IN \\(\\?,\\?\\)").
		WithArgs("s1", "s2").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM `subcategories` WHERE category_id = \\?").
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `categories` WHERE id = \\?").
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.DeleteCategory(context.Background(), "c1"); err != nil {
		t.Fatalf("DeleteCategory() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCategoryRepository_DeleteCategory_MissingIsNoop(t *testing.T) {
	repo, mock := newMockCategoryRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT `id` FROM `subcategories` WHERE category_id = \\?").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("DELETE FROM `categories` WHERE id = \\?").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.DeleteCategory(context.Background(), "missing"); err != nil {
		t.Fatalf("DeleteCategory() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCategoryRepository_DeleteSubcategory(t *testing.T) {
	repo, mock := newMockCategoryRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `subcategories` WHERE id = \\? AND category_id = \\?").
		WithArgs("s1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `level3_categories` WHERE subcategory_id = \\?").
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := repo.DeleteSubcategory(context.Background(), "c1", "s1"); err != nil {
		t.Fatalf("DeleteSubcategory() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// 子分类不属于给定分类时，不删除任何三级分类
func TestCategoryRepository_DeleteSubcategory_WrongParent(t *testing.T) {
	repo, mock := newMockCategoryRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `subcategories` WHERE id = \\? AND category_id = \\?").
		WithArgs("s1", "other").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.DeleteSubcategory(context.Background(), "other", "s1"); err != nil {
		t.Fatalf("DeleteSubcategory() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCategoryRepository_DeleteLevel3(t *testing.T) {
	repo, mock := newMockCategoryRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `level3_categories` WHERE id = \\? AND subcategory_id = \\?").
		WithArgs("l1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.DeleteLevel3(context.Background(), "s1", "l1"); err != nil {
		t.Fatalf("DeleteLevel3() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
