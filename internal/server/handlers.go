package server

import (
	"bytes"
	"io"
	"net/http"
	"reflect"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/interchange"
	"github.com/AplusKminus/GraphWalker/internal/live"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/repository"
	"github.com/AplusKminus/GraphWalker/internal/search"
)

type idResponse struct {
	ID int64 `json:"id"`
}

// maxImportBytes caps request bodies of /api/import.
const maxImportBytes = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": model.AppVersion})
}

func (s *Server) handleViewNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, repository.ViewNames())
}

// serveQuery answers a GET with the current value of q. A nil single-row
// view becomes a 404.
func serveQuery[T any](s *Server, w http.ResponseWriter, r *http.Request, q live.Query[T]) {
	v, err := q.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if isNilPointer(v) {
		s.writeError(w, r, errors.NotFoundf("%s", r.URL.Path))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// withID parses the {id} path value and hands it to fn.
func (s *Server) withID(w http.ResponseWriter, r *http.Request, fn func(id int64) (any, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := fn(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if v == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	status := http.StatusOK
	switch v.(type) {
	case idResponse, addNodeResponse:
		status = http.StatusCreated
	}
	writeJSON(w, status, v)
}

// Graphs

type createGraphRequest struct {
	Name  string            `json:"name"`
	Flags *model.GraphFlags `json:"flags,omitempty"`
	Start string            `json:"start,omitempty"`
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	serveQuery(s, w, r, s.repo.AllFullGraphs())
}

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var req createGraphRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	flags := model.DefaultFlags()
	if req.Flags != nil {
		flags = *req.Flags
	}
	ctx := r.Context()
	id, err := s.repo.CreateGraph(ctx, req.Name, flags)
	if err == nil && req.Start != "" {
		_, err = s.repo.CreateStartingNode(ctx, id, req.Start)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	serveQuery(s, w, r, s.repo.FullGraph(id))
}

type updateGraphRequest struct {
	Name  *string           `json:"name,omitempty"`
	Flags *model.GraphFlags `json:"flags,omitempty"`
}

func (s *Server) handleUpdateGraph(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		var req updateGraphRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		if req.Name != nil {
			if err := s.repo.RenameGraph(r.Context(), id, *req.Name); err != nil {
				return nil, err
			}
		}
		if req.Flags != nil {
			if err := s.repo.SetFlags(r.Context(), id, *req.Flags); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		return nil, s.repo.DeleteGraph(r.Context(), id)
	})
}

type setStartRequest struct {
	NodeID *int64 `json:"node_id"`
}

func (s *Server) handleSetStart(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		var req setStartRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		return nil, s.repo.SetStartingNode(r.Context(), id, req.NodeID)
	})
}

// Nodes

type addNodeRequest struct {
	Name      string   `json:"name"`
	Tags      []string `json:"tags,omitempty"`
	Connector *string  `json:"connector,omitempty"`
}

type addNodeResponse struct {
	ID          int64  `json:"id"`
	ConnectorID *int64 `json:"connector_id,omitempty"`
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	serveQuery(s, w, r, s.repo.NodesWithCliques(id))
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(graphID int64) (any, error) {
		var req addNodeRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		ctx := r.Context()
		if req.Connector == nil {
			id, err := s.repo.AddNode(ctx, graphID, req.Name, req.Tags...)
			return idResponse{ID: id}, err
		}
		nodeID, connID, err := s.repo.CreateNodeAndConnector(ctx, graphID, req.Name, *req.Connector)
		if err != nil {
			return nil, err
		}
		for _, t := range req.Tags {
			if _, err := s.repo.AddTag(ctx, nodeID, t); err != nil {
				return nil, err
			}
		}
		return addNodeResponse{ID: nodeID, ConnectorID: &connID}, nil
	})
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	serveQuery(s, w, r, s.repo.Node(id))
}

type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRenameNode(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		var req nameRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		return nil, s.repo.RenameNode(r.Context(), id, req.Name)
	})
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		return nil, s.repo.DeleteNode(r.Context(), id)
	})
}

type tagRequest struct {
	Tag string `json:"tag"`
}

type changedResponse struct {
	Changed bool `json:"changed"`
}

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		var req tagRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		changed, err := s.repo.AddTag(r.Context(), id, req.Tag)
		return changedResponse{Changed: changed}, err
	})
}

func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		var req tagRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		changed, err := s.repo.UpdateTag(r.Context(), id, r.PathValue("tag"), req.Tag)
		return changedResponse{Changed: changed}, err
	})
}

func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		changed, err := s.repo.RemoveTag(r.Context(), id, r.PathValue("tag"))
		return changedResponse{Changed: changed}, err
	})
}

// Connectors

func (s *Server) handleNodeConnectors(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	serveQuery(s, w, r, s.repo.NodeConnectors(id))
}

func (s *Server) handleAddConnector(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(nodeID int64) (any, error) {
		var req nameRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		id, err := s.repo.AddConnector(r.Context(), nodeID, req.Name)
		return idResponse{ID: id}, err
	})
}

func (s *Server) handleRenameConnector(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		var req nameRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		return nil, s.repo.RenameConnector(r.Context(), id, req.Name)
	})
}

func (s *Server) handleDeleteConnector(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		return nil, s.repo.DeleteConnector(r.Context(), id)
	})
}

func (s *Server) handleConnectorEdges(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	serveQuery(s, w, r, s.repo.ConnectorEdges(id))
}

func (s *Server) handleUnconnected(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	serveQuery(s, w, r, s.repo.UnconnectedConnectors(id))
}

// Edges

type edgeRequest struct {
	FromConnectorID int64    `json:"from_connector_id"`
	ToConnectorID   int64    `json:"to_connector_id"`
	Name            string   `json:"name,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	Bidirectional   bool     `json:"bidirectional,omitempty"`
}

func (e edgeRequest) edge(id int64) model.Edge {
	w := model.DefaultWeight
	if e.Weight != nil {
		w = *e.Weight
	}
	return model.Edge{
		ID:              id,
		FromConnectorID: e.FromConnectorID,
		ToConnectorID:   e.ToConnectorID,
		Name:            e.Name,
		Weight:          w,
		Bidirectional:   e.Bidirectional,
	}
}

func (s *Server) handleListEdges(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	serveQuery(s, w, r, s.repo.GraphEdges(id))
}

func (s *Server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.repo.CreateEdge(r.Context(), req.edge(0))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

type connectRequest struct {
	FromNodeID    int64    `json:"from_node_id"`
	ToNodeID      int64    `json:"to_node_id"`
	Name          string   `json:"name,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	Bidirectional bool     `json:"bidirectional,omitempty"`
}

func (s *Server) handleConnectNodes(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	e := edgeRequest{Name: req.Name, Weight: req.Weight, Bidirectional: req.Bidirectional}.edge(0)
	id, err := s.repo.ConnectNodes(r.Context(), req.FromNodeID, req.ToNodeID, e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) handleUpdateEdge(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		var req edgeRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		return nil, s.repo.UpdateEdge(r.Context(), req.edge(id))
	})
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		return nil, s.repo.DeleteEdge(r.Context(), id)
	})
}

// Cliques

type cliqueRequest struct {
	Name       string   `json:"name"`
	EdgeWeight *float64 `json:"edge_weight,omitempty"`
}

func (c cliqueRequest) weight() float64 {
	if c.EdgeWeight == nil {
		return model.DefaultWeight
	}
	return *c.EdgeWeight
}

func (s *Server) handleListCliques(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	serveQuery(s, w, r, s.repo.CliquesWithNodes(id))
}

func (s *Server) handleCreateClique(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(graphID int64) (any, error) {
		var req cliqueRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		id, err := s.repo.CreateClique(r.Context(), graphID, req.Name, req.weight())
		return idResponse{ID: id}, err
	})
}

func (s *Server) handleGetClique(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	serveQuery(s, w, r, s.repo.CliqueWithNodes(id))
}

func (s *Server) handleUpdateClique(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		var req cliqueRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		return nil, s.repo.UpdateClique(r.Context(), model.Clique{ID: id, Name: req.Name, EdgeWeight: req.weight()})
	})
}

func (s *Server) handleDeleteClique(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		return nil, s.repo.DeleteClique(r.Context(), id)
	})
}

func (s *Server) handleAddCliqueNode(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		nodeID, err := pathID(r, "node")
		if err != nil {
			return nil, err
		}
		return nil, s.repo.AddNodeToClique(r.Context(), id, nodeID)
	})
}

func (s *Server) handleRemoveCliqueNode(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		nodeID, err := pathID(r, "node")
		if err != nil {
			return nil, err
		}
		return nil, s.repo.RemoveNodeFromClique(r.Context(), id, nodeID)
	})
}

type clearedResponse struct {
	Removed int64 `json:"removed"`
}

func (s *Server) handleClearClique(w http.ResponseWriter, r *http.Request) {
	s.withID(w, r, func(id int64) (any, error) {
		n, err := s.repo.ClearClique(r.Context(), id)
		return clearedResponse{Removed: n}, err
	})
}

// Search and interchange

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filter, err := search.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	serveQuery(s, w, r, s.repo.Search(id, r.URL.Query().Get("q"), filter))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := interchange.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		if format, err = interchange.ParseFormat(f); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if !format.CanEncode() {
		s.writeError(w, r, errors.Invalidf("cannot export as %s", format))
		return
	}
	doc, err := interchange.Export(r.Context(), s.repo, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fp, err := interchange.Fingerprint(doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := interchange.Encode(&buf, doc, format); err != nil {
		s.writeError(w, r, err)
		return
	}
	contentType := "application/json"
	if format == interchange.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Document-Fingerprint", fp)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	format := interchange.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		var err error
		if format, err = interchange.ParseFormat(f); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		s.writeError(w, r, errors.Wrap(err, "read body"))
		return
	}
	doc, err := interchange.Decode(data, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := interchange.Import(r.Context(), s.repo, doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}
