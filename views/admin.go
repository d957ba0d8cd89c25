package views

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/rivergrove/wardblog/analytics"
	"github.com/rivergrove/wardblog/graphcms"
)

// adminPage is the stripped-down shell for the admin area. No category
// navigation, no JSON-LD, just the bar and the body.
func adminPage(site Site, title string, signedInAs string, csrf string, body func(b *strings.Builder)) templ.Component {
	return component(func(b *strings.Builder) {
		b.WriteString("<!DOCTYPE html><html lang=\"en\"><head>")
		b.WriteString("<meta charset=\"utf-8\"/>")
		b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"/>")
		b.WriteString("<title>" + esc(title) + " | " + esc(site.Name) + "</title>")
		b.WriteString("<meta name=\"robots\" content=\"noindex\"/>")
		b.WriteString("<link rel=\"stylesheet\" href=\"/public/style.css\"/>")
		b.WriteString("</head><body class=\"admin\">")

		b.WriteString("<header class=\"adminbar\"><div class=\"inner\">")
		b.WriteString("<a href=\"/admin/\">" + esc(site.Name) + " admin</a>")
		if signedInAs != "" {
			b.WriteString("<span class=\"operator\">" + esc(signedInAs) + "</span>")
			b.WriteString("<nav><a href=\"/admin/authors/\">Authors</a><a href=\"/admin/stats/\">Stats</a>")
			b.WriteString("<form method=\"post\" action=\"/admin/logout/\" class=\"inline\">")
			csrfField(b, csrf)
			b.WriteString("<button type=\"submit\">Sign out</button></form></nav>")
		}
		b.WriteString("</div></header>")

		b.WriteString("<main class=\"inner\">")
		body(b)
		b.WriteString("</main></body></html>")
	})
}

func csrfField(b *strings.Builder, csrf string) {
	b.WriteString("<input type=\"hidden\" name=\"csrf\" value=\"" + esc(csrf) + "\"/>")
}

// AdminLogin renders the sign-in form. errMsg is shown verbatim when a
// previous attempt failed or was throttled.
func AdminLogin(site Site, errMsg string, csrf string) templ.Component {
	return adminPage(site, "Sign in", "", csrf, func(b *strings.Builder) {
		b.WriteString("<h1>Sign in</h1>")
		if errMsg != "" {
			b.WriteString("<p class=\"error\">" + esc(errMsg) + "</p>")
		}
		b.WriteString("<form method=\"post\" action=\"/admin/login/\">")
		csrfField(b, csrf)
		b.WriteString("<label>Email <input type=\"email\" name=\"email\" required autofocus/></label>")
		b.WriteString("<label>Password <input type=\"password\" name=\"password\" required/></label>")
		b.WriteString("<button type=\"submit\">Sign in</button>")
		b.WriteString("</form>")
	})
}

// AdminDashboard lists every post with edit and delete controls. message
// is the flash from the last write, empty when there is none.
func AdminDashboard(site Site, operatorEmail string, posts []graphcms.Post, message string, csrf string) templ.Component {
	return adminPage(site, "Dashboard", operatorEmail, csrf, func(b *strings.Builder) {
		b.WriteString("<h1>Posts</h1>")
		if message != "" {
			b.WriteString("<p class=\"flash\">" + esc(message) + "</p>")
		}
		b.WriteString("<p><a class=\"button\" href=\"/admin/new/\">New post</a></p>")
		if len(posts) == 0 {
			b.WriteString("<p class=\"empty\">No posts yet.</p>")
			return
		}
		b.WriteString("<table class=\"posts\"><thead><tr><th>Title</th><th>Date</th><th>Categories</th><th></th></tr></thead><tbody>")
		for _, p := range posts {
			b.WriteString("<tr>")
			b.WriteString("<td><a href=\"/admin/edit/" + esc(p.Slug) + "/\">" + esc(p.Title) + "</a></td>")
			b.WriteString("<td>" + esc(formatDate(p.CreatedAt)) + "</td>")
			names := make([]string, 0, len(p.Categories))
			for _, cat := range p.Categories {
				names = append(names, cat.Name)
			}
			b.WriteString("<td>" + esc(strings.Join(names, ", ")) + "</td>")
			b.WriteString("<td><form method=\"post\" action=\"/admin/delete/" + esc(p.Slug) + "/\" class=\"inline\" onsubmit=\"return confirm('Delete this post?')\">")
			csrfField(b, csrf)
			b.WriteString("<button type=\"submit\" class=\"danger\">Delete</button></form></td>")
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")
	})
}

// AdminForm renders the editor for a new post (post == nil) or an
// existing one. The content textarea carries the flattened rich text.
func AdminForm(site Site, operatorEmail string, post *graphcms.Post, categories []graphcms.Category, csrf string) templ.Component {
	title := "New post"
	action := "/admin/save/"
	if post != nil {
		title = "Edit post"
		action = "/admin/save/" + post.Slug + "/"
	}
	return adminPage(site, title, operatorEmail, csrf, func(b *strings.Builder) {
		b.WriteString("<h1>" + esc(title) + "</h1>")
		b.WriteString("<form method=\"post\" action=\"" + esc(action) + "\" class=\"editor\">")
		csrfField(b, csrf)

		val := func(s string) string { return esc(s) }
		var postTitle, excerpt, content, imageID, imageURL string
		selected := map[string]bool{}
		if post != nil {
			postTitle = post.Title
			excerpt = post.Excerpt
			if post.Content != nil {
				content = post.Content.PlainText()
			}
			if post.FeaturedImage != nil {
				imageID = post.FeaturedImage.ID
				imageURL = post.FeaturedImage.URL
			}
			for _, cat := range post.Categories {
				selected[cat.Slug] = true
			}
		}

		b.WriteString("<label>Title <input type=\"text\" name=\"title\" value=\"" + val(postTitle) + "\" required/></label>")
		b.WriteString("<label>Excerpt <textarea name=\"excerpt\" rows=\"2\">" + val(excerpt) + "</textarea></label>")
		b.WriteString("<label>Content <textarea name=\"content\" rows=\"18\">" + val(content) + "</textarea></label>")

		b.WriteString("<fieldset class=\"categories\"><legend>Categories</legend>")
		for _, cat := range categories {
			checked := ""
			if selected[cat.Slug] {
				checked = " checked"
			}
			b.WriteString("<label><input type=\"checkbox\" name=\"category\" value=\"" + esc(cat.Slug) + "\"" + checked + "/> " + esc(cat.Name) + "</label>")
		}
		b.WriteString("</fieldset>")

		b.WriteString("<fieldset class=\"image\"><legend>Featured image</legend>")
		b.WriteString("<input type=\"hidden\" id=\"featured-image-id\" name=\"featuredImageId\" value=\"" + val(imageID) + "\"/>")
		if imageURL != "" {
			b.WriteString("<img id=\"featured-image-preview\" src=\"" + val(imageURL) + "\" alt=\"\"/>")
		} else {
			b.WriteString("<img id=\"featured-image-preview\" src=\"\" alt=\"\" hidden/>")
		}
		b.WriteString("<input type=\"file\" id=\"featured-image-file\" accept=\"image/*\"/>")
		b.WriteString("<button type=\"button\" id=\"featured-image-clear\">Remove image</button>")
		b.WriteString("</fieldset>")

		b.WriteString("<button type=\"submit\">Save and publish</button>")
		b.WriteString("</form>")
		b.WriteString(imageUploadScript)
	})
}

// imageUploadScript posts the selected file to the upload endpoint and
// drops the returned asset id into the form before submit.
const imageUploadScript = `<script>
(function () {
	var file = document.getElementById("featured-image-file");
	var id = document.getElementById("featured-image-id");
	var preview = document.getElementById("featured-image-preview");
	var clear = document.getElementById("featured-image-clear");
	file.addEventListener("change", function () {
		if (!file.files.length) return;
		var data = new FormData();
		data.append("file", file.files[0]);
		data.append("csrf", document.querySelector("input[name=csrf]").value);
		fetch("/admin/upload/", { method: "POST", body: data })
			.then(function (r) { if (!r.ok) throw new Error("upload failed"); return r.json(); })
			.then(function (asset) {
				id.value = asset.id;
				preview.src = asset.url;
				preview.hidden = false;
			})
			.catch(function () { alert("Image upload failed. Try again."); });
	});
	clear.addEventListener("click", function () {
		id.value = "";
		preview.src = "";
		preview.hidden = true;
		file.value = "";
	});
})();
</script>`

// AdminAuthors lists the author profiles in the backend, with the emails
// they are reachable under. Posts are attributed by matching the signed-in
// operator's email to one of these.
func AdminAuthors(site Site, operatorEmail string, authors []graphcms.Author, csrf string) templ.Component {
	return adminPage(site, "Authors", operatorEmail, csrf, func(b *strings.Builder) {
		b.WriteString("<h1>Authors</h1>")
		b.WriteString("<p>Posts are attributed to the author profile matching your sign-in email.</p>")
		if len(authors) == 0 {
			b.WriteString("<p class=\"empty\">No author profiles exist yet. Add them in the content backend.</p>")
			return
		}
		b.WriteString("<table class=\"posts\"><thead><tr><th>Name</th><th>Email</th><th>Bio</th></tr></thead><tbody>")
		for _, author := range authors {
			b.WriteString("<tr>")
			b.WriteString("<td>" + esc(author.Name) + "</td>")
			b.WriteString("<td>" + esc(author.Email) + "</td>")
			b.WriteString("<td>" + esc(author.Bio) + "</td>")
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")
	})
}

// AdminStats renders the visit counters kept in the local analytics
// database.
func AdminStats(site Site, operatorEmail string, stats analytics.Stats, csrf string) templ.Component {
	return adminPage(site, "Stats", operatorEmail, csrf, func(b *strings.Builder) {
		b.WriteString("<h1>Stats</h1>")
		b.WriteString("<p>" + strconv.FormatInt(stats.TotalVisits, 10) + " visits, " +
			strconv.FormatInt(stats.UniqueVisitors, 10) + " unique visitors in the last 30 days.</p>")

		if len(stats.TopPages) > 0 {
			b.WriteString("<h2>Top pages</h2><table class=\"stats\"><tbody>")
			for _, pg := range stats.TopPages {
				b.WriteString("<tr><td>" + esc(pg.Path) + "</td><td>" + strconv.FormatInt(pg.Visits, 10) + "</td></tr>")
			}
			b.WriteString("</tbody></table>")
		}

		if len(stats.Daily) > 0 {
			b.WriteString("<h2>Daily visits</h2><table class=\"stats\"><tbody>")
			for _, day := range stats.Daily {
				b.WriteString("<tr><td>" + esc(day.Day) + "</td><td>" + strconv.FormatInt(day.Visits, 10) + "</td></tr>")
			}
			b.WriteString("</tbody></table>")
		}
	})
}
