package model

// Item is a story-style record ingested from the external source.
// Field names follow the source wire format so that fetched hits can be
// stored and served without translation.
type Item struct {
	// ObjectID is the external business key. The store keeps its own primary key.
	ObjectID string `json:"objectID" bson:"objectID"`

	// CreatedAt is the display timestamp (ISO 8601)
	CreatedAt string `json:"created_at" bson:"created_at"`

	// CreatedAtI is the creation time in Unix seconds. It orders items and
	// serves as the ingestion watermark; ties between items are possible.
	CreatedAtI int64 `json:"created_at_i" bson:"created_at_i"`

	Author string   `json:"author" bson:"author"`
	Tags   []string `json:"_tags" bson:"_tags"`

	Title       string `json:"title,omitempty" bson:"title,omitempty"`
	URL         string `json:"url,omitempty" bson:"url,omitempty"`
	Points      *int64 `json:"points,omitempty" bson:"points,omitempty"`
	StoryText   string `json:"story_text,omitempty" bson:"story_text,omitempty"`
	CommentText string `json:"comment_text,omitempty" bson:"comment_text,omitempty"`
	NumComments *int64 `json:"num_comments,omitempty" bson:"num_comments,omitempty"`

	StoryID    *int64 `json:"story_id,omitempty" bson:"story_id,omitempty"`
	StoryTitle string `json:"story_title,omitempty" bson:"story_title,omitempty"`
	StoryURL   string `json:"story_url,omitempty" bson:"story_url,omitempty"`
	ParentID   *int64 `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
}

// HasTag reports whether the item carries the given tag.
func (it *Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Fields returns the item as a flat map keyed by wire field names.
// Optional fields that are unset are omitted.
func (it *Item) Fields() map[string]interface{} {
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	m := map[string]interface{}{
		FieldObjectID:   it.ObjectID,
		"created_at":    it.CreatedAt,
		FieldCreatedAtI: it.CreatedAtI,
		FieldAuthor:     it.Author,
		FieldTags:       tags,
		FieldTitle:      it.Title,
		"url":           it.URL,
		"story_text":    it.StoryText,
		"comment_text":  it.CommentText,
		"story_title":   it.StoryTitle,
		"story_url":     it.StoryURL,
	}
	if it.Points != nil {
		m[FieldPoints] = *it.Points
	}
	if it.NumComments != nil {
		m["num_comments"] = *it.NumComments
	}
	if it.StoryID != nil {
		m["story_id"] = *it.StoryID
	}
	if it.ParentID != nil {
		m["parent_id"] = *it.ParentID
	}
	return m
}
