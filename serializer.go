package edgepipe

import (
	"context"
	"fmt"

	"github.com/birdayz/edgepipe/edag"
	"github.com/birdayz/edgepipe/edoc"
	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
)

// Export captures the pipeline as a document. Nodes appear in insertion
// order and are named by their type; params carry the type version and the
// editor position.
func (p *Pipeline) Export() (*edoc.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := edoc.New()
	for _, tag := range p.order {
		e := p.nodes[tag.ID]
		params, err := e.node.ExportParams()
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", tag, err)
		}
		params.Version = e.typ.Version
		params.Position = e.pos
		doc.Add(tag, tag.Type, params)
	}
	doc.NodeLinks = append(doc.NodeLinks, p.links...)
	return doc, nil
}

type importNode struct {
	tag    etag.NodeTag
	typ    enode.Type
	params enode.Params
}

// Import replaces the pipeline with doc. The document is checked completely
// before the current graph is touched: unknown node types and params of a
// different schema version without a migration reject the import. Nodes
// keep their ids; id allocation continues after the largest one.
// Links the graph does not accept are skipped, as Link would.
func (p *Pipeline) Import(ctx context.Context, doc *edoc.Document) error {
	plan, err := p.planImport(doc)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.resetLocked(ctx); err != nil {
		p.log.Warn("Errors while clearing pipeline for import", "error", err)
	}

	for _, n := range plan {
		if _, err := p.addLocked(ctx, n.typ, n.tag.ID, n.params.Position); err != nil {
			return p.abortImport(ctx, err)
		}
		if err := p.nodes[n.tag.ID].node.ImportParams(n.params); err != nil {
			return p.abortImport(ctx, fmt.Errorf("import params of %s: %w", n.tag, err))
		}
	}

	for _, l := range doc.NodeLinks {
		if err := edag.CheckLink(p.links, l, p.lookupPin); err != nil {
			p.log.Warn("Skipping link", "link", l.String(), "error", err)
			continue
		}
		p.links = append(p.links, l)
	}

	p.nextID = doc.MaxID()
	p.derive()
	p.log.Info("Pipeline imported", "nodes", len(p.order), "links", len(p.links))
	return nil
}

func (p *Pipeline) abortImport(ctx context.Context, cause error) error {
	if err := p.resetLocked(ctx); err != nil {
		p.log.Warn("Errors while rolling back import", "error", err)
	}
	return cause
}

func (p *Pipeline) planImport(doc *edoc.Document) ([]importNode, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	plan := make([]importNode, 0, len(doc.NodeTags))
	for _, tag := range doc.NodeTags {
		typ, err := p.registry.Lookup(tag.Type)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", tag, err)
		}
		params := doc.Nodes[tag].Params
		if params.Version != typ.Version {
			if typ.Migrate == nil {
				return nil, fmt.Errorf("%w: node %s has params version %q, type %q is at %q",
					ErrSchemaMismatch, tag, params.Version, typ.Name, typ.Version)
			}
			migrated, err := typ.Migrate(params.Version, params)
			if err != nil {
				return nil, fmt.Errorf("%w: migrate %s from %q: %w", ErrSchemaMismatch, tag, params.Version, err)
			}
			migrated.Version = typ.Version
			params = migrated
		}
		plan = append(plan, importNode{tag: tag, typ: typ, params: params})
	}
	return plan, nil
}
