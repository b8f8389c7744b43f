// Package models defines the core domain models for cardtidy.
//
// # Models
//
//   - Contact: one imported contact card with scalar and list fields
//   - SourceFile: an imported VCF file grouping its contacts
//   - HistoryEntry: an audit record of a mutating action
//
// # Design Principles
//
// 1. **Plain structs**: models carry data and cheap derived accessors only;
// parsing lives in the vcard package and matching in the dedup package.
// 2. **Avoid circular references**: relationships use ID strings, never
// pointers (Contact.SourceFile references SourceFile.ID).
// 3. **Snapshot safety**: Contact.Clone provides deep copies so the pure
// analysis engines never alias caller-owned storage.
package models
