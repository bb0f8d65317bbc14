/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package testmodels holds record declarations shared by tests.
package testmodels

import (
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/recordstore/schema"
)

// RatingSystem is a scoring scheme owned by a site.
//
//	id           primary key
//	name         unique, required
//	description  required
//	site_url
//	created_at   date-time, required
//	updated_at   date-time, required
func RatingSystem() *schema.Declaration {
	return schema.Declare("RatingSystem",
		schema.NewField("id", schema.String, schema.PrimaryKey()),
		schema.NewField("name", schema.String, schema.Unique(), schema.Required()),
		schema.NewField("description", schema.String, schema.Required()),
		schema.NewField("site_url", schema.String),
		schema.NewField("created_at", schema.DateTime, schema.Required()),
		schema.NewField("updated_at", schema.DateTime, schema.Required()),
	)
}

// Rating is one score given under a RatingSystem.
func Rating() *schema.Declaration {
	return schema.Declare("Rating",
		schema.NewField("id", schema.String, schema.PrimaryKey()),
		schema.NewField("system", schema.String, schema.References("RatingSystem"), schema.Required()),
		schema.NewField("score", schema.Float, schema.Required()),
		schema.NewField("history", schema.List, schema.Auto()),
	)
}

// NewRatingSystem returns creation values for a RatingSystem stamped at now.
func NewRatingSystem(id, name string, now time.Time) map[string]any {
	ts := strfmt.DateTime(now.UTC())
	return map[string]any{
		"id":          id,
		"name":        name,
		"description": "Rating system " + name,
		"site_url":    "https://example.com/" + id,
		"created_at":  ts,
		"updated_at":  ts,
	}
}
