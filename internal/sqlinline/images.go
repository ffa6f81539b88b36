package sqlinline

// QUpdateImageContent rewrites the image and pins it as the session's
// selection in one statement, so a failure leaves both untouched.
const QUpdateImageContent = `--sql 502d566e-d82d-492f-93a9-ade4a6403cd4
with updated as (
    update images
    set url = $3::text,
        prompt = $4::text,
        updated_at = now()
    where id = $2::uuid
      and session_id = $1::uuid
    returning id, session_id, url, prompt, is_final, is_validated, created_at
), pinned as (
    update sessions s
    set selected_image_id = u.id
    from updated u
    where s.id = u.session_id
    returning s.id
)
select id::text, session_id::text, url, prompt, is_final, is_validated, created_at
from updated;
`

// QMarkImageFinal flags the image final and pins it as the selection.
// images_one_final_per_session rejects a second final image in the same
// session, which aborts the selection update as well.
const QMarkImageFinal = `--sql 1d8c73d9-6cb1-4c2e-a68f-caaf2ac6e4ee
with marked as (
    update images
    set is_final = true,
        is_validated = true,
        updated_at = case when is_final then updated_at else now() end
    where id = $2::uuid
      and session_id = $1::uuid
    returning id, session_id, url, prompt, is_final, is_validated, created_at
), pinned as (
    update sessions s
    set selected_image_id = m.id
    from marked m
    where s.id = m.session_id
    returning s.id
)
select id::text, session_id::text, url, prompt, is_final, is_validated, created_at
from marked;
`

const QSelectImageInSession = `--sql fbf01fa1-7f4d-4555-830d-5ae5c39e6744
select
    i.id::text,
    i.session_id::text,
    i.url,
    i.prompt,
    i.is_final,
    i.is_validated,
    i.created_at
from images i
where i.id = $2::uuid
  and i.session_id = $1::uuid;
`

const QListGallery = `--sql a11a88cd-253c-409f-9042-eb2da92738ab
select
    i.id::text,
    i.session_id::text,
    i.url,
    i.prompt,
    i.is_final,
    i.is_validated,
    i.created_at,
    coalesce(s.owner_id::text, ''),
    coalesce(u.username, '')
from images i
join sessions s on s.id = i.session_id
left join users u on u.id = s.owner_id
order by i.created_at desc, i.id
offset $1::int
limit $2::int;
`

const QSelectImagesWithOwner = `--sql 697b7058-f949-423a-8d1d-7b20f6c3ab58
select
    i.id::text,
    i.session_id::text,
    i.url,
    i.prompt,
    i.is_final,
    i.is_validated,
    i.created_at,
    coalesce(s.owner_id::text, ''),
    coalesce(u.username, '')
from images i
join sessions s on s.id = i.session_id
left join users u on u.id = s.owner_id
where i.id = any($1::uuid[])
order by array_position($1::uuid[], i.id);
`

const QDeleteOwnedImages = `--sql bf32d9d3-ad7c-459c-af25-187600c0b379
delete from images i
using sessions s
where s.id = i.session_id
  and s.owner_id = $1::uuid
  and i.id = any($2::uuid[]);
`

const QDeleteAllImages = `--sql 800c6246-3c3f-49ba-8599-93b4cfd94fb9
delete from images;
`

const QCountImages = `--sql 1c7e9f74-1da3-48c9-9346-d48812d4f8d6
select count(*) from images;
`
