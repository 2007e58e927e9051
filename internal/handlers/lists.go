package handlers

import (
	"maps"
	"net/http"
	"strconv"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
)

type listResponse[T any] struct {
	listing.Page[T]
	Label    string           `json:"label"`
	Criteria listing.Criteria `json:"criteria"`
	Selected []string         `json:"selected"`
}

// criteriaFrom reads q, sort and the named filter parameters.
func criteriaFrom(r *http.Request, filters ...string) listing.Criteria {
	q := r.URL.Query()
	cr := listing.Criteria{Query: q.Get("q"), Sort: q.Get("sort")}
	for _, f := range filters {
		if v := q.Get(f); v != "" && v != "all" {
			if cr.Filters == nil {
				cr.Filters = make(map[string]string)
			}
			cr.Filters[f] = v
		}
	}
	return cr
}

func sameCriteria(a, b listing.Criteria) bool {
	return a.Query == b.Query && a.Sort == b.Sort && maps.Equal(a.Filters, b.Filters)
}

// listPage drives ctrl from the query string. refresh=1 re-runs the fetch,
// changed criteria re-derive the view from page 1, and page moves within it.
func listPage[T any](r *http.Request, ctrl *listing.Controller[T], filters ...string) (listResponse[T], error) {
	q := r.URL.Query()
	if q.Get("refresh") == "1" {
		if err := ctrl.Load(r.Context()); err != nil {
			return listResponse[T]{}, err
		}
	} else if err := ctrl.EnsureLoaded(r.Context()); err != nil {
		return listResponse[T]{}, err
	}

	cr := criteriaFrom(r, filters...)
	page := ctrl.Current()
	if !sameCriteria(cr, ctrl.Criteria()) {
		page = ctrl.Apply(cr)
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		page = ctrl.Page(n)
	}
	return listResponse[T]{
		Page:     page,
		Label:    page.Label(),
		Criteria: cr,
		Selected: ctrl.Selected(),
	}, nil
}

type selectRequest struct {
	IDs    []string `json:"ids"`
	Toggle string   `json:"toggle"`
	Page   bool     `json:"page"`
	On     bool     `json:"on"`
	Clear  bool     `json:"clear"`
}

// applySelection handles the checkbox endpoints: toggle one id, select ids,
// select or clear the visible page, or clear everything.
func applySelection[T any](ctrl *listing.Controller[T], req selectRequest) []string {
	switch {
	case req.Clear:
		ctrl.ClearSelection()
	case req.Toggle != "":
		ctrl.Toggle(req.Toggle)
	case req.Page:
		ctrl.SelectPage(req.On)
	default:
		ctrl.Select(req.IDs...)
	}
	return ctrl.Selected()
}
