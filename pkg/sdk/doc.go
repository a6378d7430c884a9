// Package sdk provides an embedded Go client for the busantable
// recommendation engine: catalog filtering, preference scoring, duplicate
// cleanup, and the conversational shim, without running the HTTP server.
//
//	client, _ := sdk.New(ctx,
//	    sdk.WithCatalogFile("data/restaurants.json"),
//	)
//	defer client.Close()
//
//	records, _ := client.Restaurants().Filter(ctx, sdk.Query{Area: "해운대"})
//	_ = client.Users().RecordAction(ctx, "u1", sdk.Action{Type: sdk.ActionSearch, Category: "한식"})
//	ranked, _ := client.Users().Recommendations(ctx, "u1", 5)
//
// Profiles live in process memory by default; use WithRedis to share them
// between processes. Chat falls back to canned replies unless a provider
// key is configured with WithChatProvider.
package sdk
