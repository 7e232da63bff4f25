package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/u-speak/logrusmiddleware"

	"github.com/hashlink/core/chain"
	"github.com/hashlink/core/config"
	"github.com/hashlink/core/hash"
	"github.com/hashlink/core/util"
)

// API exposes a chain over REST. It is a thin adapter, every route maps
// onto one engine operation.
type API struct {
	ListenInterface string
	chain           *chain.Chain
}

// Error is returned when something has gone wrong
type Error struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type jsonBlock struct {
	Data         string `json:"data"`
	Hash         string `json:"hash"`
	Nonce        uint64 `json:"nonce"`
	Previous     string `json:"previous"`
	Salt         uint64 `json:"salt"`
	BubbleBabble string `json:"bubblebabble"`
}

type jsonStatus struct {
	Name    string `json:"name"`
	Height  uint64 `json:"height"`
	Valid   bool   `json:"valid"`
	Head    string `json:"head"`
	Pending int    `json:"pending"`
}

// New returns a configured instance of the API server
func New(c config.Configuration, ch *chain.Chain) *API {
	return &API{
		ListenInterface: c.API.Interface + ":" + strconv.Itoa(c.API.Port),
		chain:           ch,
	}
}

func jsonize(b *chain.Block) jsonBlock {
	return jsonBlock{
		Data:         string(b.Data),
		Hash:         b.Digest.String(),
		Nonce:        b.Nonce,
		Previous:     b.Previous.String(),
		Salt:         b.Salt,
		BubbleBabble: util.EncodeBubbleBabble(b.Digest),
	}
}

func (a *API) engine() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger = logrusmiddleware.Logger{Logger: log.StandardLogger()}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.POST},
	}))

	apiV1 := e.Group("/api/v1")
	apiV1.GET("/status", a.getStatus)
	apiV1.GET("/blocks/:hash", a.getBlock)
	apiV1.GET("/positions/:index", a.getPosition)
	apiV1.GET("/verify", a.verify)
	apiV1.POST("/blocks", a.addBlock)
	apiV1.POST("/diff", a.diff)
	apiV1.POST("/rollback", a.rollback)
	apiV1.POST("/commit", a.commit)
	return e
}

// Run starts the API server
func (a *API) Run() error {
	e := a.engine()
	log.Infof("Starting API Server on interface %s", a.ListenInterface)
	return e.Start(a.ListenInterface)
}

func (a *API) getStatus(c echo.Context) error {
	ctx := c.Request().Context()
	head, err := a.chain.Head(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, Error{Message: err.Error(), Code: http.StatusInternalServerError})
	}
	s := jsonStatus{
		Name:    a.chain.Name(),
		Height:  a.chain.Height(),
		Valid:   a.chain.Verify(ctx, true),
		Pending: len(a.chain.Pending()),
	}
	if head != nil {
		s.Head = head.Digest.String()
	}
	return c.JSON(http.StatusOK, s)
}

func (a *API) getBlock(c echo.Context) error {
	h, err := hash.FromHex(c.Param("hash"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, Error{Message: "Invalid hex data", Code: http.StatusBadRequest})
	}
	b, err := a.chain.Get(c.Request().Context(), h)
	if err != nil {
		return c.JSON(http.StatusNotFound, Error{Message: "Block not found", Code: http.StatusNotFound})
	}
	return c.JSON(http.StatusOK, jsonize(b))
}

func (a *API) getPosition(c echo.Context) error {
	i, err := strconv.ParseUint(c.Param("index"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, Error{Message: "Invalid index", Code: http.StatusBadRequest})
	}
	b, err := a.chain.GetIndex(c.Request().Context(), i)
	if err != nil {
		return c.JSON(http.StatusNotFound, Error{Message: "Block not found", Code: http.StatusNotFound})
	}
	return c.JSON(http.StatusOK, jsonize(b))
}

func (a *API) verify(c echo.Context) error {
	quick := c.QueryParam("quick") == "true"
	valid := a.chain.Verify(c.Request().Context(), quick)
	return c.JSON(http.StatusOK, map[string]bool{"valid": valid})
}

func (a *API) addBlock(c echo.Context) error {
	ctx := c.Request().Context()
	sub := struct {
		Data string `json:"data"`
	}{}
	if err := c.Bind(&sub); err != nil {
		return c.JSON(http.StatusBadRequest, Error{Message: "Invalid submission", Code: http.StatusBadRequest})
	}
	b, err := a.chain.NewBlock(ctx, []byte(sub.Data))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, Error{Message: err.Error(), Code: http.StatusInternalServerError})
	}
	if err := a.chain.Add(ctx, b); err != nil {
		return c.JSON(http.StatusConflict, Error{Message: err.Error(), Code: http.StatusConflict})
	}
	return c.JSON(http.StatusCreated, jsonize(b))
}

func (a *API) diff(c echo.Context) error {
	ctx := c.Request().Context()
	sub := []jsonBlock{}
	if err := c.Bind(&sub); err != nil {
		return c.JSON(http.StatusBadRequest, Error{Message: "Invalid submission", Code: http.StatusBadRequest})
	}
	blocks := make([]*chain.Block, 0, len(sub))
	for _, j := range sub {
		d, err := hash.FromHex(j.Hash)
		if err != nil {
			return c.JSON(http.StatusBadRequest, Error{Message: "Invalid hex data", Code: http.StatusBadRequest})
		}
		p, err := hash.FromHex(j.Previous)
		if err != nil {
			return c.JSON(http.StatusBadRequest, Error{Message: "Invalid hex data", Code: http.StatusBadRequest})
		}
		blocks = append(blocks, &chain.Block{
			Data:     []byte(j.Data),
			Digest:   d,
			Nonce:    j.Nonce,
			Previous: p,
			Salt:     j.Salt,
		})
	}
	other := chain.New(a.chain.Name(), chain.WithBlocks(blocks))
	delta, err := a.chain.Diff(ctx, other)
	if err != nil {
		return c.JSON(http.StatusConflict, Error{Message: err.Error(), Code: http.StatusConflict})
	}
	out := make([]*jsonBlock, len(delta))
	for i, b := range delta {
		if b != nil {
			j := jsonize(b)
			out[i] = &j
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (a *API) rollback(c echo.Context) error {
	ctx := c.Request().Context()
	sub := struct {
		Target string `json:"target"`
	}{}
	if err := c.Bind(&sub); err != nil {
		return c.JSON(http.StatusBadRequest, Error{Message: "Invalid submission", Code: http.StatusBadRequest})
	}
	var target hash.Digest
	if sub.Target != "" {
		h, err := hash.FromHex(sub.Target)
		if err != nil {
			return c.JSON(http.StatusBadRequest, Error{Message: "Invalid hex data", Code: http.StatusBadRequest})
		}
		target = h
	}
	if err := a.chain.Rollback(ctx, target); err != nil {
		return c.JSON(http.StatusConflict, Error{Message: err.Error(), Code: http.StatusConflict})
	}
	return c.JSON(http.StatusOK, jsonStatus{Name: a.chain.Name(), Height: a.chain.Height(), Valid: a.chain.Verify(ctx, true)})
}

func (a *API) commit(c echo.Context) error {
	if err := a.chain.Commit(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, Error{Message: err.Error(), Code: http.StatusInternalServerError})
	}
	return c.NoContent(http.StatusNoContent)
}
