// Package ragqa embeds the retrieval-augmented question answering pipeline
// in a Go program: chunk and index text, retrieve the closest chunks for a
// question and generate an answer from them.
//
// The caller supplies the embedding and generative models; vectors live in
// Valkey, Redis (with a search module) or Qdrant.
//
//	client, _ := ragqa.New(ctx,
//	    ragqa.WithValkey("localhost:6379", ""),
//	    ragqa.WithEmbedder(myEmbedder),
//	    ragqa.WithGenerator(myGenerator),
//	    ragqa.WithCollection("kb", 384, "cosine"),
//	)
//	defer client.Close()
//
//	_ = client.Reset(ctx)
//	_, _ = client.Ingest(ctx, "https://example.com/faq", pageText)
//	ans, _ := client.Ask(ctx, "How do refunds work?")
package ragqa
