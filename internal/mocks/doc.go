// Package mocks provides shared mock implementations of the external
// collaborators, the content generator and the social platform, so flow
// tests can script their behavior and inspect the calls they received.
//
//	gen := mocks.NewMockGeneratorWithContent(&generation.Content{Title: "t", Content: "c"})
//	gen.GenerateFn = func(ctx context.Context, src generation.Source) (*generation.Content, error) {
//	    return nil, generation.ErrContentBlocked
//	}
package mocks
