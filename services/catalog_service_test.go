package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/cloudpharmacy/cloudstore/models"
	"github.com/cloudpharmacy/cloudstore/repository"
	"github.com/cloudpharmacy/cloudstore/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	pngPhoto  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegPhoto = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

// flakyProducts wraps the memory repository and fails writes on demand.
type flakyProducts struct {
	*repository.MemoryProductRepository
	failInsert bool
	failUpdate bool
}

func (f *flakyProducts) Insert(ctx context.Context, p *models.Product) error {
	if f.failInsert {
		return errors.New("connection reset")
	}
	return f.MemoryProductRepository.Insert(ctx, p)
}

func (f *flakyProducts) Update(ctx context.Context, id bson.ObjectID, patch repository.ProductPatch) (*models.Product, error) {
	if f.failUpdate {
		return nil, errors.New("connection reset")
	}
	return f.MemoryProductRepository.Update(ctx, id, patch)
}

type failingCategories struct{}

func (failingCategories) Summaries(context.Context, []bson.ObjectID) (map[bson.ObjectID]models.CategorySummary, error) {
	return nil, errors.New("categories unavailable")
}

type fixture struct {
	svc        *CatalogService
	products   *flakyProducts
	orders     *repository.MemoryOrderIndex
	categories *repository.MemoryCategoryRepository
	blobs      *storage.MemoryStore
	category   models.Category
}

func newFixture(t *testing.T, policy PhotoPolicy) *fixture {
	t.Helper()
	f := &fixture{
		products:   &flakyProducts{MemoryProductRepository: repository.NewMemoryProductRepository()},
		orders:     repository.NewMemoryOrderIndex(),
		categories: repository.NewMemoryCategoryRepository(),
		blobs:      storage.NewMemoryStore(),
	}
	f.category = models.Category{Id: bson.NewObjectID(), Name: "Pain Relief", Slug: "pain-relief"}
	if err := f.categories.Insert(context.Background(), &f.category); err != nil {
		t.Fatalf("seed category: %v", err)
	}
	f.svc = NewCatalogService(f.products, f.orders, f.categories, f.blobs, policy, nil)

	// deterministic, strictly increasing creation times
	var mu sync.Mutex
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return f
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) input(name string) ProductInput {
	return ProductInput{
		Name:        ptr(name),
		Description: ptr("Fast acting tablets"),
		Price:       ptr(4.5),
		CategoryID:  ptr(f.category.Id.Hex()),
		Quantity:    ptr(10),
		Shipping:    ptr(true),
	}
}

func (f *fixture) create(t *testing.T, name string, photo []byte) *models.Product {
	t.Helper()
	var upload *PhotoUpload
	if photo != nil {
		upload = &PhotoUpload{Filename: "photo.png", Data: photo}
	}
	p, err := f.svc.Create(context.Background(), f.input(name), upload)
	if err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
	return p
}

func expectKind(t *testing.T, err error, kind ErrorKind) *CatalogError {
	t.Helper()
	var ce *CatalogError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CatalogError of kind %s, got %v", kind, err)
	}
	if ce.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, ce.Kind, err)
	}
	return ce
}

func TestCreate_ReturnsProductWithSlugAndCategory(t *testing.T) {
	f := newFixture(t, PhotoPolicy{Required: true})

	p := f.create(t, "Ibuprofène 200 mg", pngPhoto)

	if p.Id.IsZero() {
		t.Error("expected generated id")
	}
	if p.Slug != "ibuprofene-200-mg" {
		t.Errorf("unexpected slug %q", p.Slug)
	}
	if p.Category == nil || p.Category.Name != "Pain Relief" {
		t.Errorf("expected resolved category, got %+v", p.Category)
	}
	if p.PhotoKey == "" || p.PhotoType != "image/png" {
		t.Errorf("expected stored png photo, got key %q type %q", p.PhotoKey, p.PhotoType)
	}
	if _, err := f.blobs.Get(context.Background(), p.PhotoKey); err != nil {
		t.Errorf("photo blob not retrievable: %v", err)
	}
}

func TestCreate_SlugIsDeterministicAndURLSafe(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	safe := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

	for _, name := range []string{"Vitamin C", "  Crème  Solaire SPF-50!! ", "Paracetamol/Codeine 500"} {
		a := f.create(t, name, nil)
		b := f.create(t, name, nil)
		if a.Slug != b.Slug {
			t.Errorf("slug for %q not deterministic: %q vs %q", name, a.Slug, b.Slug)
		}
		if !safe.MatchString(a.Slug) {
			t.Errorf("slug %q for %q is not URL-safe", a.Slug, name)
		}
		if a.Id == b.Id {
			t.Error("ids must differ even when slugs collide")
		}
	}
}

func TestCreate_SlugFallsBackToIDForUnsluggableNames(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})

	for _, name := range []string{"药品", "!!!"} {
		p := f.create(t, name, nil)
		if want := "product-" + p.Id.Hex(); p.Slug != want {
			t.Errorf("slug for %q = %q, want %q", name, p.Slug, want)
		}
	}

	p := f.create(t, "Aspirin", nil)
	updated, err := f.svc.Update(context.Background(), p.Id.Hex(), ProductInput{Name: ptr("阿司匹林")}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != "product-"+p.Id.Hex() {
		t.Errorf("unexpected slug after rename %q", updated.Slug)
	}
}

func TestCreate_PresenceChecksNameTheMissingField(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})

	cases := []struct {
		field string
		clear func(*ProductInput)
	}{
		{"name", func(in *ProductInput) { in.Name = nil }},
		{"description", func(in *ProductInput) { in.Description = ptr("   ") }},
		{"price", func(in *ProductInput) { in.Price = nil }},
		{"category", func(in *ProductInput) { in.CategoryID = nil }},
		{"quantity", func(in *ProductInput) { in.Quantity = nil }},
		{"shipping", func(in *ProductInput) { in.Shipping = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			in := f.input("Aspirin")
			tc.clear(&in)
			_, err := f.svc.Create(context.Background(), in, nil)
			ce := expectKind(t, err, KindValidation)
			if ce.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, ce.Field)
			}
		})
	}
}

func TestCreate_RejectsInvalidValues(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})

	in := f.input("Aspirin")
	in.Price = ptr(-1.0)
	_, err := f.svc.Create(context.Background(), in, nil)
	expectKind(t, err, KindValidation)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		in = f.input("Aspirin")
		in.Price = ptr(bad)
		_, err = f.svc.Create(context.Background(), in, nil)
		if ce := expectKind(t, err, KindValidation); ce.Field != "price" {
			t.Errorf("price %v: expected price field, got %q", bad, ce.Field)
		}
	}

	in = f.input("Aspirin")
	in.CategoryID = ptr("not-an-id")
	_, err = f.svc.Create(context.Background(), in, nil)
	expectKind(t, err, KindValidation)

	in = f.input("Aspirin")
	in.Quantity = ptr(-3)
	_, err = f.svc.Create(context.Background(), in, nil)
	expectKind(t, err, KindValidation)
}

func TestCreate_PhotoPolicy(t *testing.T) {
	f := newFixture(t, PhotoPolicy{Required: true, MaxBytes: 64})

	_, err := f.svc.Create(context.Background(), f.input("Aspirin"), nil)
	if ce := expectKind(t, err, KindValidation); ce.Field != "photo" {
		t.Errorf("expected photo field, got %q", ce.Field)
	}

	big := append(append([]byte{}, pngPhoto...), make([]byte, 100)...)
	_, err = f.svc.Create(context.Background(), f.input("Aspirin"), &PhotoUpload{Data: big})
	expectKind(t, err, KindValidation)

	_, err = f.svc.Create(context.Background(), f.input("Aspirin"), &PhotoUpload{Data: []byte("just some text")})
	expectKind(t, err, KindValidation)

	if keys := f.blobs.Keys(); len(keys) != 0 {
		t.Errorf("rejected creates must not store blobs, found %v", keys)
	}
}

func TestCreate_InsertFailureDeletesStoredBlob(t *testing.T) {
	f := newFixture(t, PhotoPolicy{Required: true})
	f.products.failInsert = true

	_, err := f.svc.Create(context.Background(), f.input("Aspirin"), &PhotoUpload{Data: pngPhoto})
	expectKind(t, err, KindStorage)
	if !errors.Is(err, ErrStorage) {
		t.Error("expected errors.Is(err, ErrStorage)")
	}

	if keys := f.blobs.Keys(); len(keys) != 0 {
		t.Errorf("expected compensating blob delete, found %v", keys)
	}
}

func TestGet(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	created := f.create(t, "Aspirin", nil)

	got, err := f.svc.Get(context.Background(), created.Id.Hex())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Aspirin" || got.Category == nil {
		t.Errorf("unexpected product %+v", got)
	}

	_, err = f.svc.Get(context.Background(), bson.NewObjectID().Hex())
	expectKind(t, err, KindNotFound)
	_, err = f.svc.Get(context.Background(), "garbage")
	expectKind(t, err, KindNotFound)
}

func TestGet_CategoryLookupFailureKeepsProduct(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	created := f.create(t, "Aspirin", nil)
	f.svc.categories = failingCategories{}

	got, err := f.svc.Get(context.Background(), created.Id.Hex())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Category != nil {
		t.Errorf("expected no category summary, got %+v", got.Category)
	}
}

func TestList_EmptyCatalog(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})

	products, err := f.svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if products == nil || len(products) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", products)
	}
}

func TestList_NewestFirstCappedAtTwelve(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	for i := 0; i < 20; i++ {
		f.create(t, fmt.Sprintf("Product %02d", i), nil)
	}

	products, err := f.svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(products) != ListLimit {
		t.Fatalf("expected %d products, got %d", ListLimit, len(products))
	}
	if products[0].Name != "Product 19" || products[11].Name != "Product 08" {
		t.Errorf("unexpected order: first %q last %q", products[0].Name, products[11].Name)
	}
}

func TestListPage(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	for i := 0; i < 20; i++ {
		f.create(t, fmt.Sprintf("Product %02d", i), nil)
	}
	ctx := context.Background()

	third, err := f.svc.ListPage(ctx, 3)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(third) != 4 {
		t.Errorf("expected the remaining 4 products on page 3, got %d", len(third))
	}

	zero, _ := f.svc.ListPage(ctx, 0)
	first, _ := f.svc.ListPage(ctx, 1)
	negative, _ := f.svc.ListPage(ctx, -5)
	if len(zero) != PageSize || len(first) != PageSize {
		t.Fatalf("expected full first pages, got %d and %d", len(zero), len(first))
	}
	for i := range first {
		if zero[i].Id != first[i].Id || negative[i].Id != first[i].Id {
			t.Fatalf("page 0 / negative page differ from page 1 at %d", i)
		}
	}

	beyond, _ := f.svc.ListPage(ctx, 4)
	if len(beyond) != 0 {
		t.Errorf("expected empty page 4, got %d", len(beyond))
	}

	huge, err := f.svc.ListPage(ctx, math.MaxInt)
	if err != nil || huge == nil || len(huge) != 0 {
		t.Errorf("expected empty page for a huge page number, got %d (%v)", len(huge), err)
	}
}

func TestFilter(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	ctx := context.Background()
	other := models.Category{Id: bson.NewObjectID(), Name: "Vitamins", Slug: "vitamins"}
	_ = f.categories.Insert(ctx, &other)

	for i := 0; i < 3; i++ {
		in := f.input(fmt.Sprintf("Pain %d", i))
		in.Price = ptr(float64(10 * (i + 1)))
		if _, err := f.svc.Create(ctx, in, nil); err != nil {
			t.Fatal(err)
		}
		in = f.input(fmt.Sprintf("Vitamin %d", i))
		in.CategoryID = ptr(other.Id.Hex())
		in.Price = ptr(float64(10 * (i + 1)))
		if _, err := f.svc.Create(ctx, in, nil); err != nil {
			t.Fatal(err)
		}
	}

	all, err := f.svc.Filter(ctx, ProductFilter{})
	if err != nil || len(all) != 6 {
		t.Fatalf("empty filter should return all 6, got %d (%v)", len(all), err)
	}

	byCat, _ := f.svc.Filter(ctx, ProductFilter{CategoryIDs: []string{other.Id.Hex()}})
	if len(byCat) != 3 {
		t.Errorf("expected 3 vitamins, got %d", len(byCat))
	}

	byPrice, _ := f.svc.Filter(ctx, ProductFilter{PriceRange: []float64{15, 30}})
	if len(byPrice) != 4 {
		t.Errorf("expected 4 products priced 15..30, got %d", len(byPrice))
	}

	both, _ := f.svc.Filter(ctx, ProductFilter{CategoryIDs: []string{other.Id.Hex()}, PriceRange: []float64{15, 30}})
	if len(both) != 2 {
		t.Errorf("expected 2 vitamins priced 15..30, got %d", len(both))
	}

	_, err = f.svc.Filter(ctx, ProductFilter{PriceRange: []float64{10}})
	expectKind(t, err, KindValidation)
	_, err = f.svc.Filter(ctx, ProductFilter{PriceRange: []float64{30, 10}})
	expectKind(t, err, KindValidation)
	_, err = f.svc.Filter(ctx, ProductFilter{PriceRange: []float64{math.NaN(), 30}})
	expectKind(t, err, KindValidation)
	_, err = f.svc.Filter(ctx, ProductFilter{CategoryIDs: []string{"nope"}})
	expectKind(t, err, KindValidation)
}

func TestSearch(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	ctx := context.Background()
	f.create(t, "Aspirin", nil)
	in := f.input("Cough Syrup")
	in.Description = ptr("Soothes an IRRITATED throat (adults)")
	if _, err := f.svc.Create(ctx, in, nil); err != nil {
		t.Fatal(err)
	}

	all, _ := f.svc.Search(ctx, "")
	if len(all) != 2 {
		t.Errorf("empty keyword should return all products, got %d", len(all))
	}
	none, err := f.svc.Search(ctx, "zzzznomatch")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("expected empty result, got %v (%v)", none, err)
	}
	byName, _ := f.svc.Search(ctx, "ASPI")
	if len(byName) != 1 || byName[0].Name != "Aspirin" {
		t.Errorf("expected case-insensitive name match, got %v", byName)
	}
	byDesc, _ := f.svc.Search(ctx, "irritated")
	if len(byDesc) != 1 || byDesc[0].Name != "Cough Syrup" {
		t.Errorf("expected description match, got %v", byDesc)
	}
	literal, _ := f.svc.Search(ctx, "(adults)")
	if len(literal) != 1 {
		t.Errorf("expected literal match of regex metacharacters, got %d", len(literal))
	}
}

func TestRelatedAndByCategory(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	ctx := context.Background()
	var first *models.Product
	for i := 0; i < 6; i++ {
		p := f.create(t, fmt.Sprintf("Pain %d", i), nil)
		if first == nil {
			first = p
		}
	}

	related, err := f.svc.Related(ctx, first.Id.Hex(), f.category.Id.Hex())
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if len(related) != RelatedLimit {
		t.Errorf("expected %d related, got %d", RelatedLimit, len(related))
	}
	for _, p := range related {
		if p.Id == first.Id {
			t.Error("related must exclude the product itself")
		}
	}

	inCat, err := f.svc.ByCategory(ctx, f.category.Id.Hex())
	if err != nil || len(inCat) != 6 {
		t.Errorf("expected 6 products in category, got %d (%v)", len(inCat), err)
	}

	_, err = f.svc.Related(ctx, "x", f.category.Id.Hex())
	expectKind(t, err, KindValidation)
	_, err = f.svc.ByCategory(ctx, "x")
	expectKind(t, err, KindValidation)
}

func TestCount(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	f.create(t, "A", nil)
	f.create(t, "B", nil)

	n, err := f.svc.Count(context.Background())
	if err != nil || n != 2 {
		t.Errorf("expected 2, got %d (%v)", n, err)
	}
}

func TestUpdate_PartialFieldsAndSlug(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	ctx := context.Background()
	p := f.create(t, "Aspirin", nil)

	updated, err := f.svc.Update(ctx, p.Id.Hex(), ProductInput{Quantity: ptr(3)}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Quantity != 3 || updated.Slug != "aspirin" || updated.Price != 4.5 {
		t.Errorf("unexpected partial update result %+v", updated)
	}

	updated, err = f.svc.Update(ctx, p.Id.Hex(), ProductInput{Name: ptr("Aspirin Forte")}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != "aspirin-forte" {
		t.Errorf("slug not recomputed: %q", updated.Slug)
	}
	if !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Error("createdAt must not change on update")
	}
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	ctx := context.Background()
	p := f.create(t, "Aspirin", nil)

	_, err := f.svc.Update(ctx, bson.NewObjectID().Hex(), ProductInput{Quantity: ptr(1)}, nil)
	expectKind(t, err, KindNotFound)

	_, err = f.svc.Update(ctx, bson.NewObjectID().Hex(), ProductInput{}, &PhotoUpload{Data: pngPhoto})
	expectKind(t, err, KindNotFound)
	if keys := f.blobs.Keys(); len(keys) != 0 {
		t.Errorf("update of a missing product must not store a blob, found %v", keys)
	}

	_, err = f.svc.Update(ctx, p.Id.Hex(), ProductInput{}, nil)
	expectKind(t, err, KindValidation)

	_, err = f.svc.Update(ctx, p.Id.Hex(), ProductInput{Name: ptr("  ")}, nil)
	expectKind(t, err, KindValidation)
}

func TestUpdate_ReplacesPhotoKeepingExactlyOneBlob(t *testing.T) {
	f := newFixture(t, PhotoPolicy{Required: true})
	ctx := context.Background()
	p := f.create(t, "Aspirin", pngPhoto)
	oldKey := p.PhotoKey

	updated, err := f.svc.Update(ctx, p.Id.Hex(), ProductInput{}, &PhotoUpload{Data: jpegPhoto})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.PhotoKey == oldKey || updated.PhotoType != "image/jpeg" {
		t.Errorf("expected new jpeg photo, got %q %q", updated.PhotoKey, updated.PhotoType)
	}
	if _, err := f.blobs.Get(ctx, oldKey); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("old blob should be gone, got %v", err)
	}
	keys := f.blobs.Keys()
	if len(keys) != 1 || keys[0] != updated.PhotoKey {
		t.Errorf("expected exactly the new blob, found %v", keys)
	}
}

func TestUpdate_RecordFailureKeepsOldPhoto(t *testing.T) {
	f := newFixture(t, PhotoPolicy{Required: true})
	ctx := context.Background()
	p := f.create(t, "Aspirin", pngPhoto)
	f.products.failUpdate = true

	_, err := f.svc.Update(ctx, p.Id.Hex(), ProductInput{}, &PhotoUpload{Data: jpegPhoto})
	expectKind(t, err, KindStorage)

	keys := f.blobs.Keys()
	if len(keys) != 1 || keys[0] != p.PhotoKey {
		t.Errorf("expected only the original blob, found %v", keys)
	}
	stored, _ := f.products.FindByID(ctx, p.Id)
	if stored.PhotoKey != p.PhotoKey {
		t.Errorf("record should still reference the original photo")
	}
}

func TestUpdate_ConcurrentPhotoReplacementsLeaveOneBlob(t *testing.T) {
	f := newFixture(t, PhotoPolicy{Required: true})
	ctx := context.Background()
	p := f.create(t, "Aspirin", pngPhoto)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Update(ctx, p.Id.Hex(), ProductInput{}, &PhotoUpload{Data: jpegPhoto}); err != nil {
				t.Errorf("Update: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, _ := f.products.FindByID(ctx, p.Id)
	keys := f.blobs.Keys()
	if len(keys) != 1 || keys[0] != stored.PhotoKey {
		t.Errorf("expected a single live blob referenced by the product, found %v (product has %q)", keys, stored.PhotoKey)
	}
	if f.svc.locks.size() != 0 {
		t.Errorf("lock entries leaked: %d", f.svc.locks.size())
	}
}

func TestDelete_RemovesRecordAndBlob(t *testing.T) {
	f := newFixture(t, PhotoPolicy{Required: true})
	ctx := context.Background()
	p := f.create(t, "Aspirin", pngPhoto)

	if err := f.svc.Delete(ctx, p.Id.Hex()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.blobs.Get(ctx, p.PhotoKey); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected blob to be gone, got %v", err)
	}
	_, err := f.svc.Get(ctx, p.Id.Hex())
	expectKind(t, err, KindNotFound)

	_, err = f.svc.Photo(ctx, p.Id.Hex())
	expectKind(t, err, KindNotFound)
}

func TestDelete_NonexistentIsNotFound(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})

	err := f.svc.Delete(context.Background(), bson.NewObjectID().Hex())
	expectKind(t, err, KindNotFound)
	if errors.Is(err, ErrStorage) {
		t.Error("missing product must not be reported as a storage error")
	}
	expectKind(t, f.svc.Delete(context.Background(), "zz"), KindNotFound)
}

func TestDelete_RejectedWhileOrdersReferenceProduct(t *testing.T) {
	f := newFixture(t, PhotoPolicy{Required: true})
	ctx := context.Background()
	p := f.create(t, "Aspirin", pngPhoto)
	f.orders.Add(models.Order{Id: bson.NewObjectID(), Products: []bson.ObjectID{p.Id}})

	err := f.svc.Delete(ctx, p.Id.Hex())
	expectKind(t, err, KindConflict)
	if !errors.Is(err, ErrConflict) {
		t.Error("expected errors.Is(err, ErrConflict)")
	}

	if _, err := f.svc.Get(ctx, p.Id.Hex()); err != nil {
		t.Errorf("product should survive a rejected delete: %v", err)
	}
	if _, err := f.blobs.Get(ctx, p.PhotoKey); err != nil {
		t.Errorf("photo should survive a rejected delete: %v", err)
	}
}

func TestPhoto(t *testing.T) {
	f := newFixture(t, PhotoPolicy{})
	ctx := context.Background()
	with := f.create(t, "With photo", pngPhoto)
	without := f.create(t, "Without photo", nil)

	blob, err := f.svc.Photo(ctx, with.Id.Hex())
	if err != nil {
		t.Fatalf("Photo: %v", err)
	}
	if blob.ContentType != "image/png" || string(blob.Data) != string(pngPhoto) {
		t.Errorf("unexpected blob %q %q", blob.ContentType, blob.Data)
	}

	_, err = f.svc.Photo(ctx, without.Id.Hex())
	expectKind(t, err, KindNotFound)
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")

	acquired := make(chan struct{})
	go func() {
		u := k.Lock("a")
		close(acquired)
		u()
	}()

	other := k.Lock("b")
	other()

	select {
	case <-acquired:
		t.Fatal("second lock on the same key acquired while held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired

	if k.size() != 0 {
		t.Errorf("expected no entries left, got %d", k.size())
	}
}
