// Package crmclient provides the primary entry point for constructing a CRM
// API client that implements the crm.Client interface.
//
// It layers endpoint normalization, defaults, HTTP transport, authentication,
// and the execution pipeline on top of the types defined in the crm package.
// Most applications import crmclient to build a client and then use the
// returned crm.Client to reach module clients such as Records("Leads") or
// LegacyRecords("Contacts").
//
// Quick start
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
//
//	  // With an OAuth access token you already have:
//	  cli, err := crmclient.NewWithToken(ctx, "https://www.zohoapis.com", "1000.abc...")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with a refresh token; access tokens are minted and renewed as needed.
//	  cli, err = crmclient.New(ctx, &crm.Config{
//	    ClientID:     "1000.XXXX",
//	    ClientSecret: "secret",
//	    RefreshToken: "1000.refresh...",
//	  })
//
//	  leads, err := cli.Records("Leads").ListAll(ctx, &crm.ListOptions{
//	    SortBy: "Modified_Time",
//	  })
//	  _ = leads
//	}
//
// Legacy API
//
// The legacy JSON API authenticates with an authtoken passed in the query
// string. Set Config.AuthToken (and LegacyAPIEndpoint for other data centers)
// and use LegacyRecords:
//
//	cli, _ := crmclient.NewWithAuthToken(ctx, "https://crm.zoho.eu", "authtoken")
//	ids, err := cli.LegacyRecords("Leads").GetDeletedRecordIDs(ctx)
//
// Endpoints are normalized: trailing slashes are trimmed and https:// is
// added when no scheme is given. Empty endpoints default to the US data
// center.
//
// Lower-level access
//
// Build requests directly with NewQuery and run them through Execute,
// ExecuteBatch, or Paginator when the module clients do not cover an
// endpoint:
//
//	req, _ := cli.NewQuery(crm.SearchRecords, "Leads")
//	req.WithParam("criteria", "(Last_Name:equals:Smith)").AutoPaginated(true)
//	resp, err := cli.Execute(ctx, req)
package crmclient
