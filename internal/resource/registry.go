package resource

var (
	Posts = Spec{
		Name:     "posts",
		Singular: "post",
		Fields: []Field{
			{Name: "title", Label: "Title", Required: true},
			{Name: "body", Label: "Body", Required: true},
		},
		Owner:   &Owner{Field: "userId", Resource: "users"},
		Prepend: true,
	}

	Comments = Spec{
		Name:     "comments",
		Singular: "comment",
		Fields: []Field{
			{Name: "name", Label: "Name", Required: true, Unique: true},
			{Name: "email", Label: "Email", Rule: "email"},
			{Name: "body", Label: "Body", Required: true},
		},
		Owner:   &Owner{Field: "postId", Resource: "posts", Nested: true},
		Prepend: true,
	}

	Albums = Spec{
		Name:     "albums",
		Singular: "album",
		Fields: []Field{
			{Name: "title", Label: "Title", Required: true},
		},
		Owner: &Owner{Field: "userId", Resource: "users"},
	}

	Photos = Spec{
		Name:     "photos",
		Singular: "photo",
		Fields: []Field{
			{Name: "title", Label: "Title", Required: true},
			{Name: "url", Label: "URL", Rule: "url"},
			{Name: "thumbnailUrl", Label: "Thumbnail URL", Rule: "url"},
		},
		Owner: &Owner{Field: "albumId", Resource: "albums", Nested: true},
	}

	Todos = Spec{
		Name:     "todos",
		Singular: "todo",
		Fields: []Field{
			{Name: "title", Label: "Title", Required: true},
			{Name: "completed", Label: "Completed", Kind: KindBool},
		},
		Owner:   &Owner{Field: "userId", Resource: "users"},
		Prepend: true,
	}

	Users = Spec{
		Name:     "users",
		Singular: "user",
		Fields: []Field{
			{Name: "name", Label: "Name", Required: true},
			{Name: "username", Label: "Username", Required: true},
			{Name: "email", Label: "Email", Required: true, Rule: "email"},
			{Name: "address.street", Label: "Street", Required: true},
			{Name: "address.suite", Label: "Suite", Required: true},
			{Name: "address.city", Label: "City", Required: true},
			{Name: "address.zipcode", Label: "Zipcode", Required: true},
			{Name: "phone", Label: "Phone", Required: true},
			{Name: "website", Label: "Website", Required: true},
			{Name: "company.name", Label: "Company", Required: true},
			{Name: "company.catchPhrase", Label: "Catch phrase", Required: true},
			{Name: "company.bs", Label: "BS", Required: true},
		},
		Selectable: true,
	}
)

// All returns the collections in display order.
func All() []Spec {
	return []Spec{Posts, Comments, Albums, Photos, Todos, Users}
}

func Lookup(name string) (Spec, bool) {
	for _, s := range All() {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Names returns the collection names in display order.
func Names() []string {
	all := All()
	out := make([]string, 0, len(all))
	for _, s := range all {
		out = append(out, s.Name)
	}
	return out
}
