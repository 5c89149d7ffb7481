// Package render turns message templates into deliverable content.
//
// Templates use {{name}} placeholders and a single conditional,
// {{#if logoUrl}}...{{/if}}, around the header logo. Rendering runs in two
// passes: the logo block is kept or dropped first, then placeholders are
// replaced in one left-to-right scan. Substituted values are never scanned
// again, so a value containing "{{x}}" is emitted literally, and placeholders
// without a value are left in the output rather than failing the send.
//
// Every render merges the tenant Branding (colors with defaults, service
// name, frontend URL, logo) and the current year into the variable bag;
// caller variables take precedence.
//
// The package also owns the built-in Italian catalog used when a tenant has
// no template of its own for an event type.
package render
