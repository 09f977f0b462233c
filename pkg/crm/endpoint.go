package crm

import (
	"net/http"
	"strings"
)

// Method is an HTTP method accepted by the CRM API.
type Method string

// Supported methods.
const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// AllowsBody reports whether requests with this method may carry a body.
func (m Method) AllowsBody() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

// Generation identifies the API generation an endpoint belongs to.
type Generation int

const (
	// GenerationLegacy is the XML/JSON "private" API: offset windows, authtoken parameter.
	GenerationLegacy Generation = 1
	// GenerationModern is the REST API: page numbers, OAuth header.
	GenerationModern Generation = 2
)

// String implements fmt.Stringer.
func (g Generation) String() string {
	switch g {
	case GenerationLegacy:
		return "legacy"
	case GenerationModern:
		return "v2"
	default:
		return "unknown"
	}
}

// EndpointID is the static identity used to look up an endpoint's transformer.
type EndpointID string

// Built-in endpoint identities.
const (
	LegacyGetRecords          EndpointID = "legacy.getRecords"
	LegacyGetMyRecords        EndpointID = "legacy.getMyRecords"
	LegacySearchRecords       EndpointID = "legacy.searchRecords"
	LegacyGetRelatedRecords   EndpointID = "legacy.getRelatedRecords"
	LegacyGetRecordByID       EndpointID = "legacy.getRecordById"
	LegacyGetDeletedRecordIDs EndpointID = "legacy.getDeletedRecordIds"
	LegacyInsertRecords       EndpointID = "legacy.insertRecords"
	LegacyUpdateRecords       EndpointID = "legacy.updateRecords"
	LegacyDeleteRecords       EndpointID = "legacy.deleteRecords"

	ListRecords    EndpointID = "v2.listRecords"
	SearchRecords  EndpointID = "v2.searchRecords"
	GetRecord      EndpointID = "v2.getRecord"
	DeletedRecords EndpointID = "v2.deletedRecords"
	UpsertRecords  EndpointID = "v2.upsertRecords"
)

// Endpoint describes one remote operation. Method and path are fixed for every
// request built from the endpoint.
type Endpoint struct {
	ID               EndpointID
	Generation       Generation
	Method           Method
	PathTemplate     string
	RequiresModule   bool
	RequiresRecordID bool
	Paginated        bool
}

// ResolvePath fills the {module} and {id} placeholders.
func (e Endpoint) ResolvePath(module, recordID string) string {
	return strings.NewReplacer("{module}", module, "{id}", recordID).Replace(e.PathTemplate)
}

var endpoints = map[EndpointID]Endpoint{
	LegacyGetRecords: {
		ID: LegacyGetRecords, Generation: GenerationLegacy, Method: MethodGet,
		PathTemplate: "/crm/private/json/{module}/getRecords", RequiresModule: true, Paginated: true,
	},
	LegacyGetMyRecords: {
		ID: LegacyGetMyRecords, Generation: GenerationLegacy, Method: MethodGet,
		PathTemplate: "/crm/private/json/{module}/getMyRecords", RequiresModule: true, Paginated: true,
	},
	LegacySearchRecords: {
		ID: LegacySearchRecords, Generation: GenerationLegacy, Method: MethodGet,
		PathTemplate: "/crm/private/json/{module}/searchRecords", RequiresModule: true, Paginated: true,
	},
	LegacyGetRelatedRecords: {
		ID: LegacyGetRelatedRecords, Generation: GenerationLegacy, Method: MethodGet,
		PathTemplate: "/crm/private/json/{module}/getRelatedRecords", RequiresModule: true, RequiresRecordID: true, Paginated: true,
	},
	LegacyGetRecordByID: {
		ID: LegacyGetRecordByID, Generation: GenerationLegacy, Method: MethodGet,
		PathTemplate: "/crm/private/json/{module}/getRecordById", RequiresModule: true, RequiresRecordID: true,
	},
	LegacyGetDeletedRecordIDs: {
		ID: LegacyGetDeletedRecordIDs, Generation: GenerationLegacy, Method: MethodGet,
		PathTemplate: "/crm/private/json/{module}/getDeletedRecordIds", RequiresModule: true, Paginated: true,
	},
	LegacyInsertRecords: {
		ID: LegacyInsertRecords, Generation: GenerationLegacy, Method: MethodPost,
		PathTemplate: "/crm/private/json/{module}/insertRecords", RequiresModule: true,
	},
	LegacyUpdateRecords: {
		ID: LegacyUpdateRecords, Generation: GenerationLegacy, Method: MethodPost,
		PathTemplate: "/crm/private/json/{module}/updateRecords", RequiresModule: true,
	},
	LegacyDeleteRecords: {
		ID: LegacyDeleteRecords, Generation: GenerationLegacy, Method: MethodPost,
		PathTemplate: "/crm/private/json/{module}/deleteRecords", RequiresModule: true, RequiresRecordID: true,
	},
	ListRecords: {
		ID: ListRecords, Generation: GenerationModern, Method: MethodGet,
		PathTemplate: "/crm/v2/{module}", RequiresModule: true, Paginated: true,
	},
	SearchRecords: {
		ID: SearchRecords, Generation: GenerationModern, Method: MethodGet,
		PathTemplate: "/crm/v2/{module}/search", RequiresModule: true, Paginated: true,
	},
	GetRecord: {
		ID: GetRecord, Generation: GenerationModern, Method: MethodGet,
		PathTemplate: "/crm/v2/{module}/{id}", RequiresModule: true, RequiresRecordID: true,
	},
	DeletedRecords: {
		ID: DeletedRecords, Generation: GenerationModern, Method: MethodGet,
		PathTemplate: "/crm/v2/{module}/deleted", RequiresModule: true, Paginated: true,
	},
	UpsertRecords: {
		ID: UpsertRecords, Generation: GenerationModern, Method: MethodPost,
		PathTemplate: "/crm/v2/{module}/upsert", RequiresModule: true,
	},
}

// LookupEndpoint returns the built-in endpoint registered under id.
func LookupEndpoint(id EndpointID) (Endpoint, bool) {
	endpoint, ok := endpoints[id]

	return endpoint, ok
}

// Endpoints returns every built-in endpoint.
func Endpoints() []Endpoint {
	list := make([]Endpoint, 0, len(endpoints))
	for _, endpoint := range endpoints {
		list = append(list, endpoint)
	}

	return list
}
