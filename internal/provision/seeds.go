package provision

import "github.com/quarryhq/quarry/internal/domain"

// seed is one default entity written while bootstrapping a domain.
type seed struct {
	ID     string
	Title  string
	MetaID string
	ACL    domain.ACL
	Extra  map[string]any
}

// defaultColumns is the grid layout every seeded collection starts with.
var defaultColumns = []map[string]any{
	{"title": "Id", "name": "id", "data": "id"},
	{"title": "Title", "name": "title", "data": "title"},
	{"title": "Author", "name": "_meta.author", "data": "_meta.author"},
	{"title": "Version", "name": "_meta.version", "data": "_meta.version"},
	{"title": "Created", "name": "_meta.created", "data": "_meta.created"},
	{"title": "Updated", "name": "_meta.updated", "data": "_meta.updated"},
}

// defaultSearchColumns drives the seeded collections' search forms.
var defaultSearchColumns = []map[string]any{
	{"title": "Id", "name": "id", "type": "keywords"},
	{"title": "Title", "name": "title", "type": "keywords"},
	{"title": "Author", "name": "_meta.author", "type": "keywords"},
	{"title": "Version", "name": "_meta.version", "type": "numericRange"},
	{"title": "Created", "name": "_meta.created", "type": "datetimeRange"},
	{"title": "Updated", "name": "_meta.updated", "type": "datetimeRange"},
}

// defaultCollections are created in every domain.
var defaultCollections = []seed{
	{ID: ".collections", Title: "Collections"},
	{ID: ".metas", Title: "Metas"},
	{ID: ".pages", Title: "Pages"},
	{ID: ".views", Title: "Views"},
	{ID: ".forms", Title: "Forms"},
	{ID: ".files", Title: "Files"},
	{ID: ".roles", Title: "Roles"},
	{ID: ".groups", Title: "Groups"},
	{ID: ".profiles", Title: "Profiles"},
}

// rootCollections additionally exist in the root domain only.
var rootCollections = []seed{
	{ID: ".users", Title: "Users"},
	{ID: ".domains", Title: "Domains"},
}

var adminCreateACL = domain.ACL{"create": {"roles": {"administrator"}}}

// defaultMetas are the schema entities governing each seeded kind.
var defaultMetas = []seed{
	{ID: ".meta", Title: "Meta", ACL: adminCreateACL},
	{ID: ".meta-collection", Title: "Meta-collection", ACL: adminCreateACL},
	{ID: ".meta-page", Title: "Meta-page", ACL: adminCreateACL},
	{ID: ".meta-view", Title: "Meta-view", ACL: adminCreateACL},
	{ID: ".meta-form", Title: "Meta-form", ACL: adminCreateACL},
	{ID: ".meta-file", Title: "Meta-file", ACL: adminCreateACL},
	{ID: ".meta-role", Title: "Meta-role", ACL: adminCreateACL},
	{ID: ".meta-group", Title: "Meta-group", ACL: adminCreateACL},
	{ID: ".meta-profile", Title: "Meta-profile", ACL: adminCreateACL},
}

var rootMetas = []seed{
	{ID: ".meta-user", Title: "Meta-user", ACL: adminCreateACL},
	{ID: ".meta-domain", Title: "Meta-domain", ACL: adminCreateACL},
}

// defaultPages are the workbench entry points each domain starts with.
var defaultPages = []seed{
	{ID: ".workbench", Title: "Workbench"},
	{ID: ".dashboard", Title: "Dashboard"},
	{ID: ".calendar", Title: "Calendar"},
	{ID: ".chat", Title: "Chat"},
	{ID: ".email", Title: "Email"},
}

var defaultRoles = []seed{
	{ID: "administrator", Title: "Administrator"},
	{ID: "anonymous", Title: "Anonymous"},
}
