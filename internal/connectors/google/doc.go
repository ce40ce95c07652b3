// Package google provides the Google Custom Search provider used to
// discover candidate URLs for a collection query.
//
// The provider needs an API key and a programmable search engine id
// (search.api_key and search.engine_id). Without them Search returns an
// empty result so that collection from direct URLs keeps working.
package google
