package importer

import (
	"bytes"
	"context"
	"testing"

	"github.com/example/shopping-list/modules/cache"
	"github.com/example/shopping-list/modules/catalog"
	"github.com/go-monolith/mono"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// importerClient depends on the importer and keeps its service container,
// the way the api module does.
type importerClient struct {
	port ImporterPort
}

func (c *importerClient) Name() string                  { return "importer-client" }
func (c *importerClient) Dependencies() []string        { return []string{"importer"} }
func (c *importerClient) Start(_ context.Context) error { return nil }
func (c *importerClient) Stop(_ context.Context) error  { return nil }
func (c *importerClient) SetDependencyServiceContainer(dep string, container mono.ServiceContainer) {
	if dep == "importer" {
		c.port = NewImporterAdapter(container)
	}
}

var _ mono.DependentModule = (*importerClient)(nil)

// startImporterApp runs cache, catalog and importer modules on an embedded
// in-process bus and returns the importer as another module sees it.
func startImporterApp(t *testing.T, ocr OCRClient, opts ...mono.MonoFrameworkOption) ImporterPort {
	t.Helper()

	opts = append([]mono.MonoFrameworkOption{
		mono.WithNATSDontListen(),
		mono.WithNATSInProcessConn(),
		mono.WithLogLevel(mono.LogLevelError),
	}, opts...)
	app, err := mono.NewMonoApplication(opts...)
	require.NoError(t, err)

	cacheModule := cache.NewModule(cache.Config{})
	client := &importerClient{}
	require.NoError(t, app.Register(cacheModule))
	require.NoError(t, app.Register(catalog.NewModuleWithRepository(catalog.NewMemoryRepository())))
	require.NoError(t, app.Register(NewModule(DefaultConfig(), cacheModule.Cache(), WithOCRClient(ocr))))
	require.NoError(t, app.Register(client))

	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})

	require.NotNil(t, client.port)
	return client.port
}

func largePhoto(size int) Image {
	return Image{Data: bytes.Repeat([]byte{0xFF}, size), ContentType: "image/jpeg"}
}

func TestImporterModule_ScanPhotoOverBus(t *testing.T) {
	const photoSize = 2 * 1024 * 1024

	ocr := &stubOCR{lines: []string{"Milk", "  ", "Bread"}}
	port := startImporterApp(t, ocr, mono.WithNATSMaxPayload(BusPayloadFor(photoSize)))

	resp, err := port.ScanPhoto(context.Background(), "user-1", largePhoto(photoSize))
	require.NoError(t, err)

	assert.Equal(t, []string{"Milk", "Bread"}, resp.Result.Lines)
	assert.Equal(t, 1, ocr.calls)
}

func TestImporterModule_ScanPhotoBeyondBusLimit(t *testing.T) {
	ocr := &stubOCR{lines: []string{"Milk"}}
	port := startImporterApp(t, ocr)

	_, err := port.ScanPhoto(context.Background(), "user-1", largePhoto(2*1024*1024))
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrPhotoTooLarge)
	assert.Equal(t, KindPhotoTooLarge, KindOf(err))
	assert.Zero(t, ocr.calls)
}

func TestBusPayloadFor(t *testing.T) {
	tests := []struct {
		name     string
		maxPhoto int64
		want     int32
	}{
		{name: "unset keeps default", maxPhoto: 0, want: minBusPayload},
		{name: "small photo keeps default", maxPhoto: 100 * 1024, want: minBusPayload},
		{name: "two megabytes", maxPhoto: 2 * 1024 * 1024, want: 2796204 + payloadHeadroom},
		{name: "beyond bus limit", maxPhoto: 50 * 1024 * 1024, want: MaxBusPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BusPayloadFor(tt.maxPhoto); got != tt.want {
				t.Errorf("BusPayloadFor(%d) = %d, want %d", tt.maxPhoto, got, tt.want)
			}
		})
	}
}

func TestMaxPhotoSize_FitsBusPayload(t *testing.T) {
	limit := MaxPhotoSize(MaxBusPayload)
	require.Positive(t, limit)

	assert.LessOrEqual(t, BusPayloadFor(limit), MaxBusPayload)
	assert.Equal(t, MaxBusPayload, BusPayloadFor(limit+1))
	assert.Zero(t, MaxPhotoSize(1024))
}
