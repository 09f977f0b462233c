// Package crm provides types, interfaces, and helpers for working with the
// CRM record APIs, legacy and modern generations alike.
//
// # Overview
//
// The crm package defines requests, responses, endpoints and the contracts of
// the execution pipeline (Transport, Transformer, Paginator, Executor). A
// concrete implementation is provided by the crmclient package, which wires
// configuration, transport, authentication, hooks and transformers. Most
// consumers should import crmclient to construct a client and then use the
// Client interface exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/crm-client/pkg/crm"
//	  "github.com/fivetwenty-io/crm-client/pkg/crmclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := crmclient.New(ctx, &crm.Config{AccessToken: "..."})
//	  if err != nil { log.Fatal(err) }
//
//	  leads, err := cli.Records("Leads").ListAll(ctx, nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = leads
//	}
//
// # Queries and pagination
//
// Requests are built from an endpoint and chained builder methods. A request
// bound to a client can execute itself:
//
//	req, _ := cli.NewQuery(crm.ListRecords, "Contacts")
//	resp, err := req.WithParam("fields", []string{"Last_Name", "Email"}).
//	  AutoPaginated(true).
//	  Concurrency(3).
//	  WithMaxItems(1000).
//	  Execute(ctx)
//
// Pages can also be stepped through manually:
//
//	p, _ := req.Paginator()
//	for p.HasMoreData() {
//	  page, err := p.Fetch(ctx)
//	  if err != nil { break }
//	  _ = page
//	}
//
// # Errors
//
// Every error returned by the pipeline belongs to one ErrorKind (see KindOf).
// API failures are *APIError values that match category sentinels such as
// ErrRateLimited or ErrNotFound through errors.Is; helpers IsRateLimited,
// IsNotFound and IsAuthentication cover the common cases.
package crm
