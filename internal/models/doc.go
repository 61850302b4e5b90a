// Package models defines domain entities for the ytpod client.
//
// The package contains two categories of types:
//
// 1. Remote records: PocketBase collection records decoded at the data-access boundary
//   - [Podcast] : A feed owned by the user, with its RSS file and platform links
//   - [Item] : A feed episode, either a [UrlItem] (converted YouTube video) or an [UploadItem] (user audio)
//   - [Job] : A standalone conversion job created in batches
//   - [Usage] : The billing-cycle usage record with its [SubscriptionTier]
//   - [Webhook], [WebhookEvent], [APIKey], [User], [Issue]
//
// 2. Persistent entities: local SQLite rows with lifecycle management
//   - [Session] : The signed-in user and their auth token
//
// Status enums ([JobStatus], [ItemStatus], [WebhookEventStatus]) separate terminal from in-progress values;
// records that carry one implement [Pollable].
package models
