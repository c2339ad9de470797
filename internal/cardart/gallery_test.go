package cardart

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGalleryImages_PrefersOriginalFile(t *testing.T) {
	page := `<div class="tiled-gallery__gallery">
  <img src="data:image/gif;base64,R0lGOD" data-lazy-src="/lazy.jpg">
  <img src="/thumb-a.jpg" data-orig-file="/full-a.jpg">
  <img src="/full-a.jpg">
  <img src="/b.jpg">
  <img src="/c.jpg">
</div>`
	imgs, err := GalleryImages(page)
	require.NoError(t, err)
	assert.Equal(t, []string{"/lazy.jpg", "/full-a.jpg"}, imgs)
}

func TestGalleryImages_Variants(t *testing.T) {
	for _, class := range []string{"tiled-gallery_gallery", "wp-block-gallery"} {
		page := fmt.Sprintf(`<figure class=%q><img src="/one.png"></figure>`, class)
		imgs, err := GalleryImages(page)
		require.NoError(t, err)
		assert.Equal(t, []string{"/one.png"}, imgs, class)
	}

	imgs, err := GalleryImages(`<p><img src="/stray.png"></p>`)
	require.NoError(t, err)
	assert.Empty(t, imgs)

	imgs, err = GalleryImages(`<!-- <div class="wp-block-gallery"><img src="/hidden.png"></div> -->`)
	require.NoError(t, err)
	assert.Equal(t, []string{"/hidden.png"}, imgs)
}

func TestSectionImages(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<img src="/before.png"><h2 id="captain-marvel">Captain Marvel</h2><p><img src="/cm.png"></p>`)
	b.WriteString(`<h2 id="spiderman">Spider‑Man (Peter Parker)</h2>`)
	b.WriteString(`<img src="/direct.png">`)
	b.WriteString(`<figure><img src="/fig.png"><img src="/fig.png"></figure>`)
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, `<p><img src="/far-%d.png"></p>`, i)
	}

	h, imgs, err := SectionImages(b.String(), []string{"Spider-Man"})
	require.NoError(t, err)
	assert.Equal(t, "spiderman", h.ID)
	require.Len(t, imgs, 20)
	assert.Equal(t, "/direct.png", imgs[0])
	assert.Equal(t, "/fig.png", imgs[1])
	assert.Equal(t, "/far-17.png", imgs[19])

	h, imgs, err = SectionImages(b.String(), []string{"Wolverine"})
	require.NoError(t, err)
	assert.Empty(t, h.ID)
	assert.Empty(t, imgs)
}
