// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// Bucket names, one per table in the §5 schema. symbolEmbeddingsBucket is
// reserved for the optional side-table the schema names for fuzzy
// resolution; the resolver's in-memory fuzzy index (pkg/codegraph/resolver)
// is this project's chosen implementation of that side-table, so the
// bucket exists for forward compatibility but is not read by the core.
const (
	projectsBucket         = "projects"
	fileMetadataBucket     = "file_metadata" // key: projectID|filePath
	nodesBucket            = "nodes"
	edgesBucket            = "edges"
	chunksBucket           = "chunks"
	symbolEmbeddingsBucket = "symbol_embeddings"
)

var allBuckets = []string{
	projectsBucket, fileMetadataBucket, nodesBucket, edgesBucket, chunksBucket, symbolEmbeddingsBucket,
}

// EmbeddedStore is a bbolt-backed Store: one process, one file, ACID
// transactions. Writes are staged in memory and applied to bbolt in a
// single transaction per Flush call, matching the teacher's "writer groups
// inserts into batches, flush is an explicit barrier" design (§4.5).
type EmbeddedStore struct {
	db *bolt.DB

	mu      sync.Mutex
	pending pendingWrites
}

type pendingWrites struct {
	projects      map[string]*model.Project
	fileMetadata  map[string]*model.FileMetadata
	nodes         map[model.NodeID]*model.CodeNode
	edges         map[string]*model.Edge
	chunks        map[string]*model.Chunk
	deletedFiles  []deletedFileKey
	deletedProj   []string
}

type deletedFileKey struct {
	projectID, filePath string
}

func newPendingWrites() pendingWrites {
	return pendingWrites{
		projects:     make(map[string]*model.Project),
		fileMetadata: make(map[string]*model.FileMetadata),
		nodes:        make(map[model.NodeID]*model.CodeNode),
		edges:        make(map[string]*model.Edge),
		chunks:       make(map[string]*model.Chunk),
	}
}

// Open opens (or creates) a bbolt database at path and ensures every table
// bucket exists.
func Open(path string) (*EmbeddedStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &EmbeddedStore{db: db, pending: newPendingWrites()}, nil
}

func fileMetaKey(projectID, filePath string) string {
	return projectID + "|" + model.NormalizePath(filePath)
}

// --- writes (staged; applied on Flush) ---

func (s *EmbeddedStore) UpsertProject(ctx context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.pending.projects[p.ProjectID] = &cp
	return nil
}

func (s *EmbeddedStore) UpsertFileMetadata(ctx context.Context, fm *model.FileMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *fm
	s.pending.fileMetadata[fileMetaKey(fm.ProjectID, fm.FilePath)] = &cp
	return nil
}

func (s *EmbeddedStore) UpsertNodes(ctx context.Context, nodes []*model.CodeNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.pending.nodes[n.ID] = n
	}
	return nil
}

func (s *EmbeddedStore) UpsertEdges(ctx context.Context, edges []*model.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range edges {
		s.pending.edges[e.ID] = e
	}
	return nil
}

func (s *EmbeddedStore) UpsertChunks(ctx context.Context, chunks []*model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.pending.chunks[c.ID] = c
	}
	return nil
}

func (s *EmbeddedStore) DeleteFile(ctx context.Context, projectID, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.deletedFiles = append(s.pending.deletedFiles, deletedFileKey{projectID, model.NormalizePath(filePath)})
	return nil
}

func (s *EmbeddedStore) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.deletedProj = append(s.pending.deletedProj, projectID)
	return nil
}

// Flush commits every staged write in a single bbolt transaction. File and
// project deletions cascade to nodes/chunks/edges within the same
// transaction, so a reader never observes a partially cascaded delete.
func (s *EmbeddedStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = newPendingWrites()
	s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := applyDeletedProjects(tx, pending.deletedProj); err != nil {
			return err
		}
		if err := applyDeletedFiles(tx, pending.deletedFiles); err != nil {
			return err
		}
		if err := putJSON(tx, projectsBucket, pending.projects); err != nil {
			return err
		}
		if err := putJSON(tx, fileMetadataBucket, pending.fileMetadata); err != nil {
			return err
		}
		if err := putJSON(tx, nodesBucket, nodeKV(pending.nodes)); err != nil {
			return err
		}
		if err := putJSON(tx, edgesBucket, pending.edges); err != nil {
			return err
		}
		if err := putJSON(tx, chunksBucket, pending.chunks); err != nil {
			return err
		}
		return nil
	})
}

func nodeKV(m map[model.NodeID]*model.CodeNode) map[string]*model.CodeNode {
	out := make(map[string]*model.CodeNode, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func putJSON[T any](tx *bolt.Tx, bucket string, values map[string]T) error {
	b := tx.Bucket([]byte(bucket))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("store: marshal %s/%s: %w", bucket, key, err)
		}
		if err := b.Put([]byte(key), data); err != nil {
			return err
		}
	}
	return nil
}

func applyDeletedFiles(tx *bolt.Tx, files []deletedFileKey) error {
	if len(files) == 0 {
		return nil
	}
	target := make(map[deletedFileKey]bool, len(files))
	for _, f := range files {
		target[f] = true
	}

	nb := tx.Bucket([]byte(nodesBucket))
	eb := tx.Bucket([]byte(edgesBucket))
	cb := tx.Bucket([]byte(chunksBucket))
	fmb := tx.Bucket([]byte(fileMetadataBucket))

	doomedNodes := make(map[string]bool)
	if err := nb.ForEach(func(k, v []byte) error {
		var n model.CodeNode
		if err := json.Unmarshal(v, &n); err != nil {
			return err
		}
		if target[deletedFileKey{n.ProjectID, model.NormalizePath(n.FilePath)}] {
			doomedNodes[string(k)] = true
		}
		return nil
	}); err != nil {
		return err
	}
	for k := range doomedNodes {
		if err := nb.Delete([]byte(k)); err != nil {
			return err
		}
	}

	var doomedChunkKeys [][]byte
	if err := cb.ForEach(func(k, v []byte) error {
		var c model.Chunk
		if err := json.Unmarshal(v, &c); err != nil {
			return err
		}
		if doomedNodes[string(c.NodeID)] {
			doomedChunkKeys = append(doomedChunkKeys, append([]byte(nil), k...))
		}
		return nil
	}); err != nil {
		return err
	}
	for _, k := range doomedChunkKeys {
		if err := cb.Delete(k); err != nil {
			return err
		}
	}

	var doomedEdgeKeys [][]byte
	if err := eb.ForEach(func(k, v []byte) error {
		var e model.Edge
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}
		if doomedNodes[string(e.From)] || doomedNodes[string(e.To)] {
			doomedEdgeKeys = append(doomedEdgeKeys, append([]byte(nil), k...))
		}
		return nil
	}); err != nil {
		return err
	}
	for _, k := range doomedEdgeKeys {
		if err := eb.Delete(k); err != nil {
			return err
		}
	}

	for f := range target {
		if err := fmb.Delete([]byte(fileMetaKey(f.projectID, f.filePath))); err != nil {
			return err
		}
	}
	return nil
}

func applyDeletedProjects(tx *bolt.Tx, projectIDs []string) error {
	if len(projectIDs) == 0 {
		return nil
	}
	target := make(map[string]bool, len(projectIDs))
	for _, id := range projectIDs {
		target[id] = true
	}

	nb := tx.Bucket([]byte(nodesBucket))
	eb := tx.Bucket([]byte(edgesBucket))
	cb := tx.Bucket([]byte(chunksBucket))
	fmb := tx.Bucket([]byte(fileMetadataBucket))

	doomedNodes := make(map[string]bool)
	var nodeKeys [][]byte
	if err := nb.ForEach(func(k, v []byte) error {
		var n model.CodeNode
		if err := json.Unmarshal(v, &n); err != nil {
			return err
		}
		if target[n.ProjectID] {
			doomedNodes[string(k)] = true
			nodeKeys = append(nodeKeys, append([]byte(nil), k...))
		}
		return nil
	}); err != nil {
		return err
	}
	for _, k := range nodeKeys {
		if err := nb.Delete(k); err != nil {
			return err
		}
	}

	var chunkKeys [][]byte
	if err := cb.ForEach(func(k, v []byte) error {
		var c model.Chunk
		if err := json.Unmarshal(v, &c); err != nil {
			return err
		}
		if doomedNodes[string(c.NodeID)] {
			chunkKeys = append(chunkKeys, append([]byte(nil), k...))
		}
		return nil
	}); err != nil {
		return err
	}
	for _, k := range chunkKeys {
		if err := cb.Delete(k); err != nil {
			return err
		}
	}

	var edgeKeys [][]byte
	if err := eb.ForEach(func(k, v []byte) error {
		var e model.Edge
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}
		if target[e.ProjectID] {
			edgeKeys = append(edgeKeys, append([]byte(nil), k...))
		}
		return nil
	}); err != nil {
		return err
	}
	for _, k := range edgeKeys {
		if err := eb.Delete(k); err != nil {
			return err
		}
	}

	var fileKeys [][]byte
	if err := fmb.ForEach(func(k, v []byte) error {
		var fm model.FileMetadata
		if err := json.Unmarshal(v, &fm); err != nil {
			return err
		}
		if target[fm.ProjectID] {
			fileKeys = append(fileKeys, append([]byte(nil), k...))
		}
		return nil
	}); err != nil {
		return err
	}
	for _, k := range fileKeys {
		if err := fmb.Delete(k); err != nil {
			return err
		}
	}

	return nil
}

// --- reads ---

func (s *EmbeddedStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	var out *model.Project
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(projectsBucket)).Get([]byte(projectID))
		if v == nil {
			return ErrNotFound
		}
		var p model.Project
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		out = &p
		return nil
	})
	return out, err
}

func (s *EmbeddedStore) GetFileMetadata(ctx context.Context, projectID, filePath string) (*model.FileMetadata, error) {
	var out *model.FileMetadata
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(fileMetadataBucket)).Get([]byte(fileMetaKey(projectID, filePath)))
		if v == nil {
			return ErrNotFound
		}
		var fm model.FileMetadata
		if err := json.Unmarshal(v, &fm); err != nil {
			return err
		}
		out = &fm
		return nil
	})
	return out, err
}

func (s *EmbeddedStore) ListFileMetadata(ctx context.Context, projectID string) ([]*model.FileMetadata, error) {
	var out []*model.FileMetadata
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(fileMetadataBucket)).ForEach(func(k, v []byte) error {
			var fm model.FileMetadata
			if err := json.Unmarshal(v, &fm); err != nil {
				return err
			}
			if fm.ProjectID == projectID {
				out = append(out, &fm)
			}
			return nil
		})
	})
	return out, err
}

func (s *EmbeddedStore) GetNode(ctx context.Context, id model.NodeID) (*model.CodeNode, error) {
	var out *model.CodeNode
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(nodesBucket)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		var n model.CodeNode
		if err := json.Unmarshal(v, &n); err != nil {
			return err
		}
		out = &n
		return nil
	})
	return out, err
}

func (s *EmbeddedStore) GetNodes(ctx context.Context, ids []model.NodeID) ([]*model.CodeNode, error) {
	out := make([]*model.CodeNode, 0, len(ids))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(nodesBucket))
		for _, id := range ids {
			v := b.Get([]byte(id))
			if v == nil {
				continue
			}
			var n model.CodeNode
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			out = append(out, &n)
		}
		return nil
	})
	return out, err
}

func (s *EmbeddedStore) ListNodesByProject(ctx context.Context, projectID string) ([]*model.CodeNode, error) {
	var out []*model.CodeNode
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(nodesBucket)).ForEach(func(k, v []byte) error {
			var n model.CodeNode
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			if n.ProjectID == projectID {
				out = append(out, &n)
			}
			return nil
		})
	})
	return out, err
}

func (s *EmbeddedStore) ListNodesByFile(ctx context.Context, projectID, filePath string) ([]*model.CodeNode, error) {
	filePath = model.NormalizePath(filePath)
	var out []*model.CodeNode
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(nodesBucket)).ForEach(func(k, v []byte) error {
			var n model.CodeNode
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			if n.ProjectID == projectID && model.NormalizePath(n.FilePath) == filePath {
				out = append(out, &n)
			}
			return nil
		})
	})
	return out, err
}

func (s *EmbeddedStore) ListEdgesByProject(ctx context.Context, projectID string) ([]*model.Edge, error) {
	var out []*model.Edge
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(edgesBucket)).ForEach(func(k, v []byte) error {
			var e model.Edge
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.ProjectID == projectID {
				out = append(out, &e)
			}
			return nil
		})
	})
	return out, err
}

func (s *EmbeddedStore) EdgesFrom(ctx context.Context, nodeID model.NodeID) ([]*model.Edge, error) {
	var out []*model.Edge
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(edgesBucket)).ForEach(func(k, v []byte) error {
			var e model.Edge
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.From == nodeID {
				out = append(out, &e)
			}
			return nil
		})
	})
	return out, err
}

func (s *EmbeddedStore) EdgesTo(ctx context.Context, nodeID model.NodeID) ([]*model.Edge, error) {
	var out []*model.Edge
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(edgesBucket)).ForEach(func(k, v []byte) error {
			var e model.Edge
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.To == nodeID {
				out = append(out, &e)
			}
			return nil
		})
	})
	return out, err
}

func (s *EmbeddedStore) ListChunksByNode(ctx context.Context, nodeID model.NodeID) ([]*model.Chunk, error) {
	var out []*model.Chunk
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(chunksBucket)).ForEach(func(k, v []byte) error {
			var c model.Chunk
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			if c.NodeID == nodeID {
				out = append(out, &c)
			}
			return nil
		})
	})
	return out, err
}

func (s *EmbeddedStore) ListChunksByProject(ctx context.Context, projectID string) ([]*model.Chunk, error) {
	nodes, err := s.ListNodesByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	inProject := make(map[model.NodeID]bool, len(nodes))
	for _, n := range nodes {
		inProject[n.ID] = true
	}
	var out []*model.Chunk
	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(chunksBucket)).ForEach(func(k, v []byte) error {
			var c model.Chunk
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			if inProject[c.NodeID] {
				out = append(out, &c)
			}
			return nil
		})
	})
	return out, err
}

func (s *EmbeddedStore) Close() error {
	return s.db.Close()
}
