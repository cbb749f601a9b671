package analysis

import "context"

// Renderer turns aggregated buckets into chart images. Rendering happens
// outside this backend; deployments plug in their own implementation.
type Renderer interface {
	RenderBar(ctx context.Context, title string, buckets []Bucket) ([]byte, error)
	RenderPie(ctx context.Context, title string, buckets []Bucket) ([]byte, error)
}

// NopRenderer produces no charts. It stands in when no renderer is wired.
type NopRenderer struct{}

func (NopRenderer) RenderBar(context.Context, string, []Bucket) ([]byte, error) {
	return nil, nil
}

func (NopRenderer) RenderPie(context.Context, string, []Bucket) ([]byte, error) {
	return nil, nil
}
