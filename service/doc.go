// Package service exposes the document engine over HTTP. Each
// workspace maps to its own index directory under the data root, and
// open engines are cached in an expiring LRU so idle workspaces
// release their resources.
//
// Endpoints live under /workspaces/{workspace} and cover ingestion
// (multipart upload or server-side path), querying in any retrieval
// mode, stats, reset and deletion. A bearer token guards the
// workspace routes when configured.
package service
