// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mesh

import (
	"context"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/PStryder/InterView/services/interview/datatypes"
	"github.com/PStryder/InterView/services/interview/sources"
)

// shipmentManifestObject is the well-known object name a shipment manifest
// is staged under within a lineage prefix.
const shipmentManifestObject = "shipment_manifest.json"

// DepotBucket lists staged-artifact metadata directly from a GCS bucket,
// for deployments where the depot is bucket-backed and DepotGate is not
// fronting it. Object attributes only; payload bytes are never read.
//
// Objects are laid out under {tenant_id}/{root_task_id}/ for lineage
// scoping and {tenant_id}/deliverables/{deliverable_id}/ for deliverable
// scoping.
//
// # Thread Safety
//
// DepotBucket is safe for concurrent use.
type DepotBucket struct {
	client *storage.Client
	bucket string
}

// NewDepotBucket creates a bucket-backed artifact index. credentialsFile
// may be empty, in which case ambient application-default credentials
// apply.
func NewDepotBucket(ctx context.Context, bucket, credentialsFile string) (*DepotBucket, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create depot storage client: %w", err)
	}

	return &DepotBucket{client: client, bucket: bucket}, nil
}

// Close releases the underlying storage client.
func (b *DepotBucket) Close() error {
	return b.client.Close()
}

// ListArtifacts walks the scoped prefix and builds pointers from object
// attributes. Pointers are capped at q.Limit, but iteration continues so
// staged counts and the manifest pointer reflect the full prefix.
func (b *DepotBucket) ListArtifacts(ctx context.Context, q datatypes.ArtifactQuery) (*datatypes.ArtifactInventory, error) {
	if b.bucket == "" {
		return nil, sources.Unavailable(datatypes.SourceStorageMetadata, "Depot bucket not configured")
	}

	prefix := q.TenantID + "/" + q.RootTaskID + "/"
	if q.RootTaskID == "" {
		prefix = q.TenantID + "/deliverables/" + q.DeliverableID + "/"
	}

	inv := &datatypes.ArtifactInventory{Pointers: []datatypes.ArtifactPointer{}}
	var counts datatypes.StagedCountsByRole
	seen := 0

	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, sources.UnavailableWrap(datatypes.SourceStorageMetadata, "Depot bucket listing failed", err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		seen++

		location := "gs://" + b.bucket + "/" + attrs.Name
		if path.Base(attrs.Name) == shipmentManifestObject {
			inv.ShipmentManifestPointer = location
			continue
		}

		role := attrs.Metadata["artifact_role"]
		switch role {
		case "plan":
			counts.Plan++
		case "final_output":
			counts.FinalOutput++
		case "supporting":
			counts.Supporting++
		default:
			counts.Intermediate++
		}

		if q.Limit > 0 && len(inv.Pointers) >= q.Limit {
			continue
		}
		inv.Pointers = append(inv.Pointers, pointerFromAttrs(attrs, q, location, role))
	}

	if seen > 0 {
		inv.StagedCounts = &counts
	}
	return inv, nil
}

func pointerFromAttrs(attrs *storage.ObjectAttrs, q datatypes.ArtifactQuery, location, role string) datatypes.ArtifactPointer {
	p := datatypes.ArtifactPointer{
		ArtifactID:   attrs.Metadata["artifact_id"],
		RootTaskID:   attrs.Metadata["root_task_id"],
		MimeType:     attrs.ContentType,
		SizeBytes:    attrs.Size,
		ArtifactRole: role,
		Location:     location,
	}
	if p.ArtifactID == "" {
		p.ArtifactID = path.Base(attrs.Name)
	}
	if p.RootTaskID == "" {
		p.RootTaskID = q.RootTaskID
	}
	if !attrs.Created.IsZero() {
		staged := attrs.Created.UTC()
		p.StagedAt = &staged
	}
	if len(attrs.MD5) > 0 {
		p.ContentHash = hex.EncodeToString(attrs.MD5)
	} else {
		p.ContentHash = fmt.Sprintf("crc32c:%08x", attrs.CRC32C)
	}
	return p
}

var _ sources.ArtifactIndex = (*DepotBucket)(nil)
